package http

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/radieske/wager-platform-poc/internal/wager-service/dto"
	"github.com/radieske/wager-platform-poc/internal/wager-service/engine"
	"github.com/radieske/wager-platform-poc/internal/wager-service/repo"
	"github.com/radieske/wager-platform-poc/pkg/contracts/events"
)

type stubSettler struct {
	wager *repo.Wager
	err   error

	gotUserID int64
	gotStake  decimal.Decimal
	gotChance float64
}

func (s *stubSettler) Settle(ctx context.Context, userID int64, stake decimal.Decimal, probability float64) (*repo.Wager, error) {
	s.gotUserID = userID
	s.gotStake = stake
	s.gotChance = probability
	if s.err != nil {
		return nil, s.err
	}
	return s.wager, nil
}

type stubStore struct {
	users  map[int64]repo.User
	wagers map[int64]repo.Wager
	best   []repo.Wager
	listU  []repo.User
	listW  []repo.Wager
}

func (s *stubStore) GetUser(ctx context.Context, id int64) (*repo.User, error) {
	u, ok := s.users[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &u, nil
}

func (s *stubStore) ListUsers(ctx context.Context, limit, offset int) ([]repo.User, error) {
	if offset >= len(s.listU) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.listU) {
		end = len(s.listU)
	}
	return s.listU[offset:end], nil
}

func (s *stubStore) GetWager(ctx context.Context, id int64) (*repo.Wager, error) {
	w, ok := s.wagers[id]
	if !ok {
		return nil, repo.ErrNotFound
	}
	return &w, nil
}

func (s *stubStore) ListWagers(ctx context.Context, limit, offset int) ([]repo.Wager, error) {
	if offset >= len(s.listW) {
		return nil, nil
	}
	end := offset + limit
	if end > len(s.listW) {
		end = len(s.listW)
	}
	return s.listW[offset:end], nil
}

func (s *stubStore) WagersByUserIDs(ctx context.Context, userIDs []int64) ([]repo.Wager, error) {
	var out []repo.Wager
	for _, w := range s.listW {
		for _, id := range userIDs {
			if w.UserID == id {
				out = append(out, w)
				break
			}
		}
	}
	return out, nil
}

func (s *stubStore) BestWagersByUserIDs(ctx context.Context, userIDs []int64) ([]repo.Wager, error) {
	return s.best, nil
}

type stubPublisher struct {
	published []events.WagerSettled
}

func (p *stubPublisher) PublishWagerSettled(ctx context.Context, e events.WagerSettled) error {
	p.published = append(p.published, e)
	return nil
}

func newTestServer(settler *stubSettler, store *stubStore) (*Server, *stubPublisher) {
	publ := &stubPublisher{}
	return NewServer(zap.NewNop(), settler, store, publ), publ
}

func sampleWager() *repo.Wager {
	return &repo.Wager{
		ID:          7,
		UserID:      1,
		Stake:       decimal.RequireFromString("100"),
		Probability: 1.0,
		Payout:      decimal.RequireFromString("200"),
		Win:         true,
		CreatedAt:   time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func TestPlaceWagerSuccess(t *testing.T) {
	settler := &stubSettler{wager: sampleWager()}
	srv, publ := newTestServer(settler, &stubStore{})

	body := `{"userId":1,"amount":"100","chance":1}`
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wagers", strings.NewReader(body)))

	require.Equal(t, http.StatusCreated, rec.Code)

	var resp dto.WagerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.ID)
	assert.Equal(t, "100", resp.Stake)
	assert.Equal(t, "200", resp.Payout)
	assert.True(t, resp.Win)

	assert.Equal(t, int64(1), settler.gotUserID)
	assert.True(t, settler.gotStake.Equal(decimal.RequireFromString("100")))
	assert.Equal(t, 1.0, settler.gotChance)

	require.Len(t, publ.published, 1)
	assert.Equal(t, int64(7), publ.published[0].WagerID)
}

func TestPlaceWagerErrorMapping(t *testing.T) {
	cases := []struct {
		name       string
		err        error
		wantStatus int
		wantKind   string
	}{
		{"insufficient balance", fmt.Errorf("%w: balance 50 < stake 100", engine.ErrInsufficientBalance), http.StatusConflict, "CONFLICT"},
		{"user not found", fmt.Errorf("%w: user 9", engine.ErrUserNotFound), http.StatusNotFound, "NOT_FOUND"},
		{"lock unavailable", engine.ErrLockUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"store unavailable", engine.ErrStoreUnavailable, http.StatusServiceUnavailable, "UNAVAILABLE"},
		{"invalid argument", engine.ErrInvalidArgument, http.StatusBadRequest, "INVALID_ARGUMENT"},
		{"commit failure", engine.ErrCommit, http.StatusInternalServerError, "INTERNAL"},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv, publ := newTestServer(&stubSettler{err: tc.err}, &stubStore{})

			rec := httptest.NewRecorder()
			body := `{"userId":1,"amount":"100","chance":0.5}`
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wagers", strings.NewReader(body)))

			assert.Equal(t, tc.wantStatus, rec.Code)

			var resp dto.ErrorResponse
			require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
			assert.Equal(t, tc.wantKind, resp.Kind)
			assert.Empty(t, publ.published, "falha não publica evento")
		})
	}
}

func TestPlaceWagerRejectsBadPayload(t *testing.T) {
	srv, _ := newTestServer(&stubSettler{}, &stubStore{})

	for name, body := range map[string]string{
		"bad json":       `{"userId":`,
		"missing userId": `{"amount":"10","chance":0.5}`,
	} {
		t.Run(name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/wagers", strings.NewReader(body)))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
		})
	}
}

func TestGetWager(t *testing.T) {
	store := &stubStore{wagers: map[int64]repo.Wager{7: *sampleWager()}}
	srv, _ := newTestServer(&stubSettler{}, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wagers/7", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.WagerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, int64(7), resp.ID)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wagers/999", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wagers/abc", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetUser(t *testing.T) {
	store := &stubStore{users: map[int64]repo.User{1: {
		ID: 1, Name: "Angela", Balance: decimal.RequireFromString("100"),
	}}}
	srv, _ := newTestServer(&stubSettler{}, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp dto.UserResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Angela", resp.Name)
	assert.Equal(t, "100", resp.Balance)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users/2", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListWagersPagination(t *testing.T) {
	store := &stubStore{}
	for i := int64(1); i <= 5; i++ {
		w := *sampleWager()
		w.ID = i
		store.listW = append(store.listW, w)
	}
	srv, _ := newTestServer(&stubSettler{}, store)

	// primeira página cheia vem com next_cursor
	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wagers?first=2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var page dto.WagersPage
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(1), page.Items[0].ID)
	require.NotEmpty(t, page.NextCursor)

	// segunda página continua de onde o cursor parou
	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wagers?first=2&after="+page.NextCursor, nil))
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, int64(3), page.Items[0].ID)
}

func TestListRejectsInvalidCursor(t *testing.T) {
	srv, _ := newTestServer(&stubSettler{}, &stubStore{})

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wagers?after=%21%21%21", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/users?first=-1", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestBestWagers(t *testing.T) {
	store := &stubStore{best: []repo.Wager{*sampleWager()}}
	srv, _ := newTestServer(&stubSettler{}, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wagers/best?userIds=1,2", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []dto.WagerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 1)
	assert.Equal(t, "200", resp[0].Payout)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wagers/best", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wagers/best?userIds=a,b", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestWagersByUsersBatch(t *testing.T) {
	store := &stubStore{}
	for i := int64(1); i <= 4; i++ {
		w := *sampleWager()
		w.ID = i
		w.UserID = i % 2 // usuários 0 e 1
		store.listW = append(store.listW, w)
	}
	srv, _ := newTestServer(&stubSettler{}, store)

	rec := httptest.NewRecorder()
	srv.Router().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/wagers/by-users?userIds=1", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp []dto.WagerResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp, 2)
	for _, w := range resp {
		assert.Equal(t, int64(1), w.UserID)
	}
}
