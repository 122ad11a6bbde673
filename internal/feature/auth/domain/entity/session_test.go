package entity

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSession_IsValid(t *testing.T) {
	t.Parallel()

	revokedAt := time.Now()
	tests := []struct {
		name    string
		session Session
		want    bool
	}{
		{"active", Session{ExpiresAt: time.Now().Add(time.Hour)}, true},
		{"expired", Session{ExpiresAt: time.Now().Add(-time.Minute)}, false},
		{"revoked", Session{ExpiresAt: time.Now().Add(time.Hour), RevokedAt: &revokedAt}, false},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, tt.session.IsValid())
		})
	}
}
