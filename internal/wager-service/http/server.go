package http

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/radieske/wager-platform-poc/internal/wager-service/dto"
	"github.com/radieske/wager-platform-poc/internal/wager-service/engine"
	"github.com/radieske/wager-platform-poc/internal/wager-service/metrics"
	"github.com/radieske/wager-platform-poc/internal/wager-service/repo"
	"github.com/radieske/wager-platform-poc/pkg/contracts/events"
)

const (
	defaultPageSize = 20
	maxPageSize     = 100
)

// Settler é o contrato do engine consumido pelo handler
type Settler interface {
	Settle(ctx context.Context, userID int64, stake decimal.Decimal, probability float64) (*repo.Wager, error)
}

// Store é o caminho de leitura; sem hazard de concorrência, fora do engine
type Store interface {
	GetUser(ctx context.Context, id int64) (*repo.User, error)
	ListUsers(ctx context.Context, limit, offset int) ([]repo.User, error)
	GetWager(ctx context.Context, id int64) (*repo.Wager, error)
	ListWagers(ctx context.Context, limit, offset int) ([]repo.Wager, error)
	WagersByUserIDs(ctx context.Context, userIDs []int64) ([]repo.Wager, error)
	BestWagersByUserIDs(ctx context.Context, userIDs []int64) ([]repo.Wager, error)
}

type Server struct {
	log    *zap.Logger
	engine Settler
	store  Store
	publ   interface {
		PublishWagerSettled(context.Context, events.WagerSettled) error
	}
}

func NewServer(log *zap.Logger, e Settler, st Store, p interface {
	PublishWagerSettled(context.Context, events.WagerSettled) error
}) *Server {
	return &Server{log: log, engine: e, store: st, publ: p}
}

func (s *Server) Router() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/wagers", s.wagers)              // POST place | GET list
	mux.HandleFunc("/wagers/best", s.bestWagers)     // GET ?userIds=1,2,3
	mux.HandleFunc("/wagers/by-users", s.userWagers) // GET ?userIds=1,2,3 (lote)
	mux.HandleFunc("/wagers/", s.getWager)           // GET /wagers/{id}
	mux.HandleFunc("/users", s.listUsers)            // GET list
	mux.HandleFunc("/users/", s.getUser)             // GET /users/{id}
	return mux
}

func (s *Server) wagers(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodPost:
		s.placeWager(w, r)
	case http.MethodGet:
		s.listWagers(w, r)
	default:
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
	}
}

// placeWager roda um settlement completo e traduz o kind do erro em status
func (s *Server) placeWager(w http.ResponseWriter, r *http.Request) {
	var req dto.PlaceWagerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "bad json", engine.KindInvalid)
		return
	}
	if req.UserID <= 0 {
		writeError(w, http.StatusBadRequest, "userId required", engine.KindInvalid)
		return
	}

	started := time.Now()
	wager, err := s.engine.Settle(r.Context(), req.UserID, req.Amount, req.Chance)
	if err != nil {
		kind := engine.Classify(err)
		metrics.RecordSettlement(strings.ToLower(string(kind)), started)
		s.log.Warn("settlement failed",
			zap.Int64("userId", req.UserID),
			zap.String("kind", string(kind)),
			zap.Error(err),
		)
		writeError(w, statusFor(kind), err.Error(), kind)
		return
	}

	result := "loss"
	if wager.Win {
		result = "win"
	}
	metrics.RecordSettlement(result, started)

	// Publicação é fire-and-forget: o settlement já commitou e não
	// deixa de valer porque o broker soluçou
	if err := s.publ.PublishWagerSettled(r.Context(), events.WagerSettled{
		WagerID: wager.ID,
		UserID:  wager.UserID,
		Stake:   wager.Stake.String(),
		Chance:  wager.Probability,
		Payout:  wager.Payout.String(),
		Win:     wager.Win,
	}); err != nil {
		s.log.Warn("publish wager_settled", zap.Int64("wagerId", wager.ID), zap.Error(err))
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(wagerResponse(wager))
}

func (s *Server) getWager(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(r.URL.Path[len("/wagers/"):], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "wagerId must be numeric", engine.KindInvalid)
		return
	}
	wager, err := s.store.GetWager(r.Context(), id)
	if err != nil {
		s.notFoundOrInternal(w, err, "wager")
		return
	}
	writeJSON(w, wagerResponse(wager))
}

func (s *Server) listWagers(w http.ResponseWriter, r *http.Request) {
	limit, offset, ok := s.window(w, r)
	if !ok {
		return
	}
	wagers, err := s.store.ListWagers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), engine.KindInternal)
		return
	}

	page := dto.WagersPage{Items: make([]dto.WagerResponse, 0, len(wagers))}
	for i := range wagers {
		page.Items = append(page.Items, wagerResponse(&wagers[i]))
	}
	if len(wagers) == limit {
		page.NextCursor = encodeCursor(offset + limit)
	}
	writeJSON(w, page)
}

// bestWagers devolve, para cada usuário do lote, o wager de maior payout
func (s *Server) bestWagers(w http.ResponseWriter, r *http.Request) {
	s.batchWagers(w, r, s.store.BestWagersByUserIDs)
}

// userWagers devolve todos os wagers dos usuários do lote
func (s *Server) userWagers(w http.ResponseWriter, r *http.Request) {
	s.batchWagers(w, r, s.store.WagersByUserIDs)
}

func (s *Server) batchWagers(w http.ResponseWriter, r *http.Request, fetch func(context.Context, []int64) ([]repo.Wager, error)) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	rawIDs := r.URL.Query().Get("userIds")
	if rawIDs == "" {
		writeError(w, http.StatusBadRequest, "userIds required", engine.KindInvalid)
		return
	}
	var ids []int64
	for _, part := range strings.Split(rawIDs, ",") {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "userIds must be numeric", engine.KindInvalid)
			return
		}
		ids = append(ids, id)
	}

	wagers, err := fetch(r.Context(), ids)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), engine.KindInternal)
		return
	}
	out := make([]dto.WagerResponse, 0, len(wagers))
	for i := range wagers {
		out = append(out, wagerResponse(&wagers[i]))
	}
	writeJSON(w, out)
}

func (s *Server) getUser(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	id, err := strconv.ParseInt(r.URL.Path[len("/users/"):], 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "userId must be numeric", engine.KindInvalid)
		return
	}
	user, err := s.store.GetUser(r.Context(), id)
	if err != nil {
		s.notFoundOrInternal(w, err, "user")
		return
	}
	writeJSON(w, userResponse(user))
}

func (s *Server) listUsers(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "method not allowed", http.StatusMethodNotAllowed)
		return
	}
	limit, offset, ok := s.window(w, r)
	if !ok {
		return
	}
	users, err := s.store.ListUsers(r.Context(), limit, offset)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error(), engine.KindInternal)
		return
	}

	page := dto.UsersPage{Items: make([]dto.UserResponse, 0, len(users))}
	for i := range users {
		page.Items = append(page.Items, userResponse(&users[i]))
	}
	if len(users) == limit {
		page.NextCursor = encodeCursor(offset + limit)
	}
	writeJSON(w, page)
}

// window resolve (first, after) da query em (limit, offset)
func (s *Server) window(w http.ResponseWriter, r *http.Request) (limit, offset int, ok bool) {
	limit = defaultPageSize
	if raw := r.URL.Query().Get("first"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "first must be a positive integer", engine.KindInvalid)
			return 0, 0, false
		}
		if n > maxPageSize {
			n = maxPageSize
		}
		limit = n
	}

	offset, err := decodeCursor(r.URL.Query().Get("after"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "invalid cursor", engine.KindInvalid)
		return 0, 0, false
	}
	return limit, offset, true
}

func (s *Server) notFoundOrInternal(w http.ResponseWriter, err error, what string) {
	if err == repo.ErrNotFound {
		writeError(w, http.StatusNotFound, what+" not found", engine.KindNotFound)
		return
	}
	writeError(w, http.StatusInternalServerError, err.Error(), engine.KindInternal)
}

// statusFor traduz a taxonomia do engine em status HTTP
func statusFor(kind engine.Kind) int {
	switch kind {
	case engine.KindInvalid:
		return http.StatusBadRequest
	case engine.KindNotFound:
		return http.StatusNotFound
	case engine.KindConflict:
		return http.StatusConflict
	case engine.KindUnavailable:
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func wagerResponse(w *repo.Wager) dto.WagerResponse {
	return dto.WagerResponse{
		ID:        w.ID,
		UserID:    w.UserID,
		Stake:     w.Stake.String(),
		Chance:    w.Probability,
		Payout:    w.Payout.String(),
		Win:       w.Win,
		CreatedAt: w.CreatedAt,
	}
}

func userResponse(u *repo.User) dto.UserResponse {
	return dto.UserResponse{
		ID:        u.ID,
		Name:      u.Name,
		Balance:   u.Balance.String(),
		CreatedAt: u.CreatedAt,
		UpdatedAt: u.UpdatedAt,
	}
}

// writeJSON serializa e envia resposta JSON
func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string, kind engine.Kind) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(dto.ErrorResponse{Error: msg, Kind: string(kind)})
}
