package bonus

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/sohoz88/promo-site/internal/domain"
	apperrors "github.com/sohoz88/promo-site/internal/errors"
	"github.com/sohoz88/promo-site/internal/pagecache"
	"github.com/sohoz88/promo-site/internal/repository"
	"github.com/sohoz88/promo-site/internal/store"
	"github.com/sohoz88/promo-site/internal/validation"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type tickingClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *tickingClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(time.Second)
	return c.now
}

// objectIDClient behaves like the Mongo backend for identifiers while
// storing data in memory.
type objectIDClient struct {
	*store.MemoryClient
}

func (c objectIDClient) NewID() any { return primitive.NewObjectID() }

func (c objectIDClient) ParseID(id string) (any, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, store.ErrInvalidID
	}
	return oid, nil
}

func newTestService(t *testing.T, client store.Client) (*Service, *pagecache.MemoryCache) {
	t.Helper()

	cache := pagecache.NewMemoryCache()
	clock := &tickingClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
	repo := repository.NewBonusRepository(client, "bonuses", testLogger())
	svc := NewService(repo, cache, apperrors.NewHandler(testLogger()), testLogger(),
		WithClock(clock.Now), WithStoreMode(client.Mode()))

	return svc, cache
}

func welcomeBonus() domain.BonusInput {
	return domain.BonusInput{
		Title:               "Welcome Bonus!!",
		Description:         "Deposit and get 100% match bonus today",
		TurnoverRequirement: "20x",
		ImageURL:            "https://example.com/a.png",
		CTALink:             "https://example.com/register",
		IsActive:            boolPtr(true),
	}
}

func boolPtr(v bool) *bool { return &v }

func TestService_CreateThenGet(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemoryClient(testLogger()))
	ctx := context.Background()

	in := welcomeBonus()
	res := svc.Create(ctx, in)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, MsgCreated, res.Message)
	require.NotEmpty(t, res.BonusID)

	got := svc.GetByID(ctx, res.BonusID)
	require.NotNil(t, got)
	assert.Equal(t, res.BonusID, got.ID)
	assert.Equal(t, in.Title, got.Title)
	assert.Equal(t, in.Description, got.Description)
	assert.Equal(t, in.TurnoverRequirement, got.TurnoverRequirement)
	assert.Equal(t, in.ImageURL, got.ImageURL)
	assert.Equal(t, in.CTALink, got.CTALink)
	assert.True(t, got.IsActive)
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, got.CreatedAt, got.UpdatedAt)
}

func TestService_CreateDefaultsActive(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemoryClient(testLogger()))
	ctx := context.Background()

	in := welcomeBonus()
	in.IsActive = nil
	res := svc.Create(ctx, in)
	require.True(t, res.Success)

	assert.True(t, svc.GetByID(ctx, res.BonusID).IsActive)
}

func TestService_CreateValidationFailure(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemoryClient(testLogger()))
	ctx := context.Background()

	in := welcomeBonus()
	in.Title = "Hi"
	res := svc.Create(ctx, in)

	assert.False(t, res.Success)
	assert.Equal(t, "Invalid data.", res.Error)
	assert.Equal(t, string(apperrors.KindValidation), res.Kind)
	assert.Equal(t, []string{validation.MsgTitleTooShort}, res.FieldErrors["title"])
	assert.Empty(t, svc.List(ctx))
}

func TestService_ListNewestFirst(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemoryClient(testLogger()))
	ctx := context.Background()

	var ids []string
	for _, title := range []string{"First bonus", "Second bonus", "Third bonus"} {
		in := welcomeBonus()
		in.Title = title
		res := svc.Create(ctx, in)
		require.True(t, res.Success)
		ids = append(ids, res.BonusID)
	}

	list := svc.List(ctx)
	require.Len(t, list, 3)
	assert.Equal(t, []string{ids[2], ids[1], ids[0]}, []string{list[0].ID, list[1].ID, list[2].ID})
	for i := 1; i < len(list); i++ {
		assert.True(t, list[i-1].CreatedAt.After(list[i].CreatedAt))
	}
}

func TestService_ListActive(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemoryClient(testLogger()))
	ctx := context.Background()

	active := svc.Create(ctx, welcomeBonus())
	hidden := welcomeBonus()
	hidden.IsActive = boolPtr(false)
	require.True(t, svc.Create(ctx, hidden).Success)

	list := svc.ListActive(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, active.BonusID, list[0].ID)

	stats := svc.Stats(ctx)
	assert.Equal(t, int64(2), stats.TotalBonuses)
	assert.Equal(t, int64(1), stats.ActiveBonuses)
	assert.Equal(t, "memory", stats.StoreMode)
}

func TestService_UpdateMissingLeavesCollection(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemoryClient(testLogger()))
	ctx := context.Background()

	created := svc.Create(ctx, welcomeBonus())
	before := svc.List(ctx)

	in := welcomeBonus()
	in.Title = "Something else"
	res := svc.Update(ctx, "mockid-does-not-exist", in)

	assert.False(t, res.Success)
	assert.Equal(t, string(apperrors.KindNotFound), res.Kind)
	assert.Equal(t, MsgUpdateNotFound, res.Message)
	assert.Equal(t, before, svc.List(ctx))
	assert.Equal(t, "Welcome Bonus!!", svc.GetByID(ctx, created.BonusID).Title)
}

func TestService_UpdateRoundTrip(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemoryClient(testLogger()))
	ctx := context.Background()

	created := svc.Create(ctx, welcomeBonus())
	before := svc.GetByID(ctx, created.BonusID)
	require.NotNil(t, before)

	in := domain.BonusInput{
		Title:               "Weekend Reload",
		Description:         "Reload on weekends and get 50% extra",
		TurnoverRequirement: "None",
		ImageURL:            "data:image/png;base64,AAAA",
		CTALink:             "https://example.com/reload",
		IsActive:            boolPtr(false),
	}
	res := svc.Update(ctx, created.BonusID, in)
	require.True(t, res.Success, res.Message)
	assert.Equal(t, MsgUpdated, res.Message)

	after := svc.GetByID(ctx, created.BonusID)
	require.NotNil(t, after)
	assert.Equal(t, in.Title, after.Title)
	assert.Equal(t, in.Description, after.Description)
	assert.Equal(t, in.TurnoverRequirement, after.TurnoverRequirement)
	assert.Equal(t, in.ImageURL, after.ImageURL)
	assert.Equal(t, in.CTALink, after.CTALink)
	assert.False(t, after.IsActive)
	assert.Equal(t, before.CreatedAt, after.CreatedAt)
	assert.True(t, after.UpdatedAt.After(before.UpdatedAt))
}

func TestService_DeleteTwice(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemoryClient(testLogger()))
	ctx := context.Background()

	created := svc.Create(ctx, welcomeBonus())

	first := svc.Delete(ctx, created.BonusID)
	assert.True(t, first.Success)
	assert.Equal(t, MsgDeleted, first.Message)

	second := svc.Delete(ctx, created.BonusID)
	assert.False(t, second.Success)
	assert.Equal(t, string(apperrors.KindNotFound), second.Kind)
	assert.Equal(t, MsgDeleteNotFound, second.Message)
}

func TestService_MalformedIDsWithObjectIDs(t *testing.T) {
	client := objectIDClient{store.NewMemoryClient(testLogger())}
	svc, _ := newTestService(t, client)
	ctx := context.Background()

	created := svc.Create(ctx, welcomeBonus())
	require.True(t, created.Success)
	_, err := primitive.ObjectIDFromHex(created.BonusID)
	require.NoError(t, err)
	require.NotNil(t, svc.GetByID(ctx, created.BonusID))

	assert.Nil(t, svc.GetByID(ctx, "not-hex"))

	upd := svc.Update(ctx, "not-hex", welcomeBonus())
	assert.False(t, upd.Success)
	assert.Equal(t, string(apperrors.KindInvalidID), upd.Kind)
	assert.Equal(t, "Invalid ID format.", upd.Error)
	assert.Equal(t, "Bonus ID is not a valid ObjectId format.", upd.Message)

	del := svc.Delete(ctx, "not-hex")
	assert.False(t, del.Success)
	assert.Equal(t, string(apperrors.KindNotFound), del.Kind)
}

func TestService_InvalidatesPages(t *testing.T) {
	svc, cache := newTestService(t, store.NewMemoryClient(testLogger()))
	ctx := context.Background()

	warm := func(paths ...string) {
		for _, p := range paths {
			v, err := cache.Version(ctx, p)
			require.NoError(t, err)
			require.NoError(t, cache.Set(ctx, p, v, []byte("cached"), 0))
		}
	}
	cached := func(p string) bool {
		_, ok := cache.Get(ctx, p)
		return ok
	}

	warm(pagecache.PathHome, pagecache.PathPromotions, pagecache.PathAdminBonuses, pagecache.PathAdminSettings)
	created := svc.Create(ctx, welcomeBonus())
	assert.False(t, cached(pagecache.PathHome))
	assert.False(t, cached(pagecache.PathPromotions))
	assert.False(t, cached(pagecache.PathAdminBonuses))
	assert.True(t, cached(pagecache.PathAdminSettings))

	edit := pagecache.EditBonusPath(created.BonusID)
	warm(pagecache.PathHome, edit)
	require.True(t, svc.Update(ctx, created.BonusID, welcomeBonus()).Success)
	assert.False(t, cached(pagecache.PathHome))
	assert.False(t, cached(edit))

	warm(pagecache.PathPromotions, edit)
	require.True(t, svc.Delete(ctx, created.BonusID).Success)
	assert.False(t, cached(pagecache.PathPromotions))
	assert.False(t, cached(edit))
}

type mockRepo struct {
	mock.Mock
}

func (m *mockRepo) List(ctx context.Context, onlyActive bool) ([]domain.Bonus, error) {
	args := m.Called(ctx, onlyActive)
	list, _ := args.Get(0).([]domain.Bonus)
	return list, args.Error(1)
}

func (m *mockRepo) FindByID(ctx context.Context, id string) (*domain.Bonus, error) {
	args := m.Called(ctx, id)
	b, _ := args.Get(0).(*domain.Bonus)
	return b, args.Error(1)
}

func (m *mockRepo) Create(ctx context.Context, b *domain.Bonus) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockRepo) Replace(ctx context.Context, b *domain.Bonus) error {
	return m.Called(ctx, b).Error(0)
}

func (m *mockRepo) Delete(ctx context.Context, id string) error {
	return m.Called(ctx, id).Error(0)
}

func (m *mockRepo) Count(ctx context.Context, onlyActive bool) (int64, error) {
	args := m.Called(ctx, onlyActive)
	return args.Get(0).(int64), args.Error(1)
}

func TestService_BackendFailures(t *testing.T) {
	boom := errors.New("connection reset by peer")
	repo := new(mockRepo)
	repo.On("List", mock.Anything, mock.Anything).Return(nil, boom)
	repo.On("FindByID", mock.Anything, "x").Return(nil, boom)
	repo.On("Create", mock.Anything, mock.Anything).Return(boom)
	repo.On("Replace", mock.Anything, mock.Anything).Return(boom)
	repo.On("Delete", mock.Anything, "x").Return(boom)
	repo.On("Count", mock.Anything, mock.Anything).Return(int64(0), boom)

	svc := NewService(repo, nil, nil, testLogger())
	ctx := context.Background()

	list := svc.List(ctx)
	assert.NotNil(t, list)
	assert.Empty(t, list)
	assert.Nil(t, svc.GetByID(ctx, "x"))

	created := svc.Create(ctx, welcomeBonus())
	assert.False(t, created.Success)
	assert.Equal(t, "Database error.", created.Error)
	assert.Equal(t, string(apperrors.KindDatabase), created.Kind)
	assert.NotContains(t, created.Message, boom.Error())

	assert.Equal(t, string(apperrors.KindDatabase), svc.Update(ctx, "x", welcomeBonus()).Kind)
	assert.Equal(t, string(apperrors.KindDatabase), svc.Delete(ctx, "x").Kind)
	assert.Equal(t, domain.BonusStats{}, svc.Stats(ctx))

	repo.AssertExpectations(t)
}

func TestService_EndToEnd(t *testing.T) {
	svc, _ := newTestService(t, store.NewMemoryClient(testLogger()))
	ctx := context.Background()

	in := welcomeBonus()
	created := svc.Create(ctx, in)
	require.True(t, created.Success)
	require.NotEmpty(t, created.BonusID)

	list := svc.List(ctx)
	require.Len(t, list, 1)
	assert.Equal(t, created.BonusID, list[0].ID)

	in.IsActive = boolPtr(false)
	require.True(t, svc.Update(ctx, created.BonusID, in).Success)

	got := svc.GetByID(ctx, created.BonusID)
	require.NotNil(t, got)
	assert.False(t, got.IsActive)

	require.True(t, svc.Delete(ctx, created.BonusID).Success)
	assert.Nil(t, svc.GetByID(ctx, created.BonusID))
}

func TestSummarizeImage(t *testing.T) {
	assert.Equal(t, "data URI (length: 26)", summarizeImage("data:image/png;base64,AAAA"))
	assert.Equal(t, "https://x", summarizeImage("https://x"))
}
