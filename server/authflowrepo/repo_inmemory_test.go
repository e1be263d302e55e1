package authflowrepo_test

import (
	"testing"
	"time"

	"github.com/jrsteele09/go-job-board/server/authflowrepo"
	"github.com/stretchr/testify/require"
)

func TestInMemoryRepo(t *testing.T) {
	now := time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }

	t.Run("take is one-shot", func(t *testing.T) {
		repo := authflowrepo.NewInMemoryRepo(authflowrepo.WithNowTime(clock))
		require.NoError(t, repo.Upsert("s1", &authflowrepo.AuthFlowState{ViewerID: "v1", Nonce: "n1", ReturnURL: "/jobs/1"}))

		got, err := repo.Get("s1")
		require.NoError(t, err)
		require.Equal(t, "n1", got.Nonce)
		require.Equal(t, now, got.CreatedAt)

		got, err = repo.Take("s1")
		require.NoError(t, err)
		require.Equal(t, "v1", got.ViewerID)

		_, err = repo.Take("s1")
		require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
	})

	t.Run("expired state is missing", func(t *testing.T) {
		repo := authflowrepo.NewInMemoryRepo(authflowrepo.WithNowTime(clock), authflowrepo.WithTTL(time.Minute))
		require.NoError(t, repo.Upsert("s1", &authflowrepo.AuthFlowState{Nonce: "n1", CreatedAt: now.Add(-2 * time.Minute)}))

		_, err := repo.Get("s1")
		require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
		_, err = repo.Take("s1")
		require.ErrorIs(t, err, authflowrepo.ErrStateNotFound)
	})

	t.Run("invalid input", func(t *testing.T) {
		repo := authflowrepo.NewInMemoryRepo()
		require.Error(t, repo.Upsert("", &authflowrepo.AuthFlowState{}))
		require.Error(t, repo.Upsert("s1", nil))
		_, err := repo.Get("")
		require.Error(t, err)
		require.Error(t, repo.Delete(""))
		require.NoError(t, repo.Delete("unknown"))
	})
}
