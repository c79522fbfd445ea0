package service

import (
	"context"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/pribylovaa/go-media-hub/internal/models"
	"github.com/pribylovaa/go-media-hub/internal/storage"
	"github.com/stretchr/testify/require"
)

func TestAuthenticate(t *testing.T) {
	t.Parallel()

	svc, d := newSvc(t)
	ctx := context.Background()
	user := storedUser(t, "neo", "p")

	tp, err := svc.IssueTokenPair(ctx, user)
	require.NoError(t, err)

	d.st.EXPECT().UserByID(gomock.Any(), user.ID).Return(user, nil)
	got, err := svc.Authenticate(ctx, tp.AccessToken)
	require.NoError(t, err)
	require.Equal(t, user.ID, got.ID)
	require.Empty(t, got.PasswordHash)

	_, err = svc.Authenticate(ctx, "")
	requireKind(t, err, ErrAuth)

	_, err = svc.Authenticate(ctx, tp.RefreshToken)
	requireKind(t, err, ErrAuth)

	d.st.EXPECT().UserByID(gomock.Any(), user.ID).Return(nil, storage.ErrNotFound)
	_, err = svc.Authenticate(ctx, tp.AccessToken)
	requireKind(t, err, ErrAuth)
}

func TestChannelProfile(t *testing.T) {
	t.Parallel()

	svc, d := newSvc(t)
	viewer := uuid.New()

	_, err := svc.ChannelProfile(context.Background(), "  ", viewer)
	requireKind(t, err, ErrValidation)

	d.st.EXPECT().ChannelProfile(gomock.Any(), "ghost", viewer).Return(nil, storage.ErrNotFound)
	_, err = svc.ChannelProfile(context.Background(), "ghost", viewer)
	requireKind(t, err, ErrNotFound)

	want := &models.ChannelProfile{Username: "neo", SubscribersCount: 2, IsSubscribed: true}
	d.st.EXPECT().ChannelProfile(gomock.Any(), "neo", viewer).Return(want, nil)
	got, err := svc.ChannelProfile(context.Background(), "NEO", viewer)
	require.NoError(t, err)
	require.Equal(t, want, got)
}

func TestWatchHistory(t *testing.T) {
	t.Parallel()

	svc, d := newSvc(t)
	id := uuid.New()

	d.st.EXPECT().WatchHistory(gomock.Any(), id).Return(nil, storage.ErrNotFound)
	_, err := svc.WatchHistory(context.Background(), id)
	requireKind(t, err, ErrNotFound)

	d.st.EXPECT().WatchHistory(gomock.Any(), id).Return(nil, nil)
	history, err := svc.WatchHistory(context.Background(), id)
	require.NoError(t, err)
	require.NotNil(t, history)
	require.Empty(t, history)

	entries := []models.WatchedVideo{
		{Video: models.Video{Title: "b"}, Owner: models.Owner{Username: "o"}},
		{Video: models.Video{Title: "a"}, Owner: models.Owner{Username: "o"}},
	}
	d.st.EXPECT().WatchHistory(gomock.Any(), id).Return(entries, nil)
	history, err = svc.WatchHistory(context.Background(), id)
	require.NoError(t, err)
	require.Equal(t, entries, history)
}

func TestSubscribeAndUnsubscribe(t *testing.T) {
	t.Parallel()

	svc, d := newSvc(t)
	ctx := context.Background()
	me := uuid.New()
	channel := &models.User{ID: uuid.New(), Username: "channel"}

	d.st.EXPECT().UserByUsername(gomock.Any(), "channel").Return(channel, nil)
	d.st.EXPECT().Subscribe(gomock.Any(), me, channel.ID).Return(nil)
	require.NoError(t, svc.Subscribe(ctx, me, "Channel"))

	d.st.EXPECT().UserByUsername(gomock.Any(), "channel").Return(channel, nil)
	requireKind(t, svc.Subscribe(ctx, channel.ID, "channel"), ErrValidation)

	d.st.EXPECT().UserByUsername(gomock.Any(), "ghost").Return(nil, storage.ErrNotFound)
	requireKind(t, svc.Subscribe(ctx, me, "ghost"), ErrNotFound)

	requireKind(t, svc.Unsubscribe(ctx, me, ""), ErrValidation)

	d.st.EXPECT().UserByUsername(gomock.Any(), "channel").Return(channel, nil)
	d.st.EXPECT().Unsubscribe(gomock.Any(), me, channel.ID).Return(nil)
	require.NoError(t, svc.Unsubscribe(ctx, me, "channel"))
}

func TestRecordWatch(t *testing.T) {
	t.Parallel()

	svc, d := newSvc(t)
	ctx := context.Background()
	me, video := uuid.New(), uuid.New()

	d.st.EXPECT().VideoByID(gomock.Any(), video).Return(nil, storage.ErrNotFound)
	requireKind(t, svc.RecordWatch(ctx, me, video), ErrNotFound)

	d.st.EXPECT().VideoByID(gomock.Any(), video).Return(&models.Video{ID: video}, nil)
	d.st.EXPECT().AppendWatchHistory(gomock.Any(), me, video).Return(nil)
	require.NoError(t, svc.RecordWatch(ctx, me, video))
}
