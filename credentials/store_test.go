package credentials

import (
	"fmt"
	nethttp "net/http"
	"sync"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testOldBearer = "Bearer OLD"
	testNewBearer = "Bearer NEW"
)

func TestNewStoreCanonicalizesNames(t *testing.T) {
	s := NewStore(map[string]string{"authorization": testOldBearer, "x-device-id": "d1", "x-empty": ""})

	snap := s.Snapshot()
	assert.Equal(t, map[string]string{
		"Authorization": testOldBearer,
		"X-Device-Id":   "d1",
	}, snap)
}

func TestMerge(t *testing.T) {
	t.Run("store wins over existing value regardless of case", func(t *testing.T) {
		s := NewStore(map[string]string{"Authorization": testOldBearer})

		s.Merge(map[string]string{"AUTHORIZATION": testNewBearer})

		v, ok := s.Get("authorization")
		require.True(t, ok)
		assert.Equal(t, testNewBearer, v)
		assert.Len(t, s.Snapshot(), 1)
	})

	t.Run("empty value removes header", func(t *testing.T) {
		s := NewStore(map[string]string{"Authorization": testOldBearer, "X-Tenant": "t1"})

		s.Merge(map[string]string{"Authorization": ""})

		_, ok := s.Get("Authorization")
		assert.False(t, ok)
		assert.Equal(t, map[string]string{"X-Tenant": "t1"}, s.Snapshot())
	})

	t.Run("empty merge does not bump version", func(t *testing.T) {
		s := NewStore(nil)
		s.Merge(nil)
		assert.Equal(t, uint64(0), s.Version())
	})
}

func TestSnapshotIsACopy(t *testing.T) {
	s := NewStore(map[string]string{"Authorization": testOldBearer})

	snap := s.Snapshot()
	snap["Authorization"] = "tampered"

	v, _ := s.Get("Authorization")
	assert.Equal(t, testOldBearer, v)
}

func TestDeleteAndClear(t *testing.T) {
	s := NewStore(map[string]string{"Authorization": testOldBearer, "X-Tenant": "t1"})

	s.Delete("x-tenant")
	assert.Equal(t, uint64(1), s.Version())
	s.Delete("x-missing")
	assert.Equal(t, uint64(1), s.Version())

	s.Clear()
	assert.Empty(t, s.Snapshot())
	assert.Equal(t, uint64(2), s.Version())
}

func TestApplyTo(t *testing.T) {
	s := NewStore(map[string]string{"Authorization": testNewBearer})
	h := nethttp.Header{}
	h.Set("Authorization", testOldBearer)
	h.Set("Accept", "application/json")

	s.ApplyTo(h)

	assert.Equal(t, testNewBearer, h.Get("Authorization"))
	assert.Equal(t, "application/json", h.Get("Accept"))
}

func TestBearerToken(t *testing.T) {
	tests := []struct {
		name   string
		header string
		token  string
		ok     bool
	}{
		{name: "bearer", header: "Bearer abc", token: "abc", ok: true},
		{name: "lowercase scheme", header: "bearer abc", token: "abc", ok: true},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", ok: false},
		{name: "empty token", header: "Bearer   ", ok: false},
		{name: "short", header: "Bear", ok: false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := NewStore(map[string]string{"Authorization": tt.header})
			token, ok := s.BearerToken()
			assert.Equal(t, tt.ok, ok)
			assert.Equal(t, tt.token, token)
		})
	}

	t.Run("missing", func(t *testing.T) {
		_, ok := NewStore(nil).BearerToken()
		assert.False(t, ok)
	})
}

func TestSetBearer(t *testing.T) {
	s := NewStore(nil)

	s.SetBearer("abc")
	v, _ := s.Get("Authorization")
	assert.Equal(t, "Bearer abc", v)

	s.SetBearer("")
	_, ok := s.Get("Authorization")
	assert.False(t, ok)
}

func signedToken(t *testing.T, exp time.Time) string {
	t.Helper()
	claims := jwt.RegisteredClaims{
		Subject:   "user-1",
		ExpiresAt: jwt.NewNumericDate(exp),
		IssuedAt:  jwt.NewNumericDate(exp.Add(-time.Minute)),
	}
	raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return raw
}

func TestBearerExpiry(t *testing.T) {
	now := time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC)

	t.Run("jwt with exp", func(t *testing.T) {
		s := NewStore(nil)
		s.SetBearer(signedToken(t, now.Add(30*time.Second)))

		exp, ok := s.BearerExpiry()
		require.True(t, ok)
		assert.True(t, exp.Equal(now.Add(30*time.Second)))

		assert.True(t, s.ExpiresWithin(now, time.Minute))
		assert.False(t, s.ExpiresWithin(now, 10*time.Second))
	})

	t.Run("opaque token", func(t *testing.T) {
		s := NewStore(nil)
		s.SetBearer("opaque-token")

		_, ok := s.BearerExpiry()
		assert.False(t, ok)
		assert.False(t, s.ExpiresWithin(now, time.Hour))
	})

	t.Run("jwt without exp", func(t *testing.T) {
		raw, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: "x"}).SignedString([]byte("k"))
		require.NoError(t, err)

		_, ok := TokenExpiry(raw)
		assert.False(t, ok)
	})
}

func TestConcurrentMergeAndSnapshot(t *testing.T) {
	s := NewStore(map[string]string{"Authorization": "Bearer 0", "X-Token-Gen": "0"})

	var wg sync.WaitGroup
	for i := 1; i <= 50; i++ {
		wg.Add(2)
		go func(i int) {
			defer wg.Done()
			s.Merge(map[string]string{
				"Authorization": fmt.Sprintf("Bearer %d", i),
				"X-Token-Gen":   fmt.Sprintf("%d", i),
			})
		}(i)
		go func() {
			defer wg.Done()
			snap := s.Snapshot()
			// both headers come from the same merge
			assert.Equal(t, "Bearer "+snap["X-Token-Gen"], snap["Authorization"])
		}()
	}
	wg.Wait()
	assert.Equal(t, uint64(50), s.Version())
}
