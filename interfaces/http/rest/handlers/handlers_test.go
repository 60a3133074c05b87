package handlers

import (
	"context"
	"io"
	"net/http"
	"sync"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/sjak1/rabbithole-backend/application/ports"
	"github.com/sjak1/rabbithole-backend/application/services"
	"github.com/sjak1/rabbithole-backend/domain/core/entities"
	"github.com/sjak1/rabbithole-backend/domain/core/valueobjects"
	"github.com/sjak1/rabbithole-backend/domain/events"
	"github.com/sjak1/rabbithole-backend/pkg/auth"
	pkgerrors "github.com/sjak1/rabbithole-backend/pkg/errors"
)

// In-memory fakes behind the service ports, so handler tests exercise the
// full handler-service path without any AWS or provider dependency.

type memBranchRepo struct {
	mu       sync.Mutex
	branches map[string]*entities.Branch
}

func newMemBranchRepo() *memBranchRepo {
	return &memBranchRepo{branches: make(map[string]*entities.Branch)}
}

func copyBranch(b *entities.Branch, version int) *entities.Branch {
	clone, _ := entities.ReconstructBranch(
		b.ID(), b.OwnerID(), b.Name(), b.ParentID(), b.Messages(),
		b.CreatedAt(), b.UpdatedAt(), version,
	)
	return clone
}

func (r *memBranchRepo) Get(ctx context.Context, id valueobjects.BranchID) (*entities.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	b, ok := r.branches[id.String()]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("branch")
	}
	return copyBranch(b, b.Version()), nil
}

func (r *memBranchRepo) Put(ctx context.Context, branch *entities.Branch) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.branches[branch.ID().String()] = copyBranch(branch, branch.Version()+1)
	return nil
}

func (r *memBranchRepo) Delete(ctx context.Context, id valueobjects.BranchID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.branches[id.String()]; !ok {
		return pkgerrors.NewNotFoundError("branch")
	}
	delete(r.branches, id.String())
	return nil
}

func (r *memBranchRepo) ListByOwner(ctx context.Context, ownerID string) ([]*entities.Branch, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*entities.Branch
	for _, b := range r.branches {
		if b.OwnerID() == ownerID {
			out = append(out, copyBranch(b, b.Version()))
		}
	}
	return out, nil
}

type memAccountRepo struct {
	mu       sync.Mutex
	accounts map[string]*entities.Account
}

func newMemAccountRepo() *memAccountRepo {
	return &memAccountRepo{accounts: make(map[string]*entities.Account)}
}

func (r *memAccountRepo) Get(ctx context.Context, userID string) (*entities.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[userID]
	if !ok {
		return nil, pkgerrors.NewNotFoundError("account")
	}
	return account, nil
}

func (r *memAccountRepo) Put(ctx context.Context, account *entities.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.accounts[account.ID()]; ok {
		return pkgerrors.NewConflictError("account already exists")
	}
	r.accounts[account.ID()] = account
	return nil
}

func (r *memAccountRepo) Decrement(ctx context.Context, userID string, amount float64) (float64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	account, ok := r.accounts[userID]
	if !ok {
		return 0, pkgerrors.NewNotFoundError("account")
	}
	updated, _ := entities.ReconstructAccount(
		account.ID(), account.Email(), account.DisplayName(),
		account.Credits()-amount, account.CreatedAt(), account.UpdatedAt(), account.Version(),
	)
	r.accounts[userID] = updated
	return updated.Credits(), nil
}

type stubIdentity struct{}

func (stubIdentity) FetchProfile(ctx context.Context, userID string) (*ports.Profile, error) {
	return &ports.Profile{Email: userID + "@example.com", DisplayName: "Test User"}, nil
}

type nopPublisher struct{}

func (nopPublisher) Publish(ctx context.Context, event events.DomainEvent) error { return nil }
func (nopPublisher) PublishBatch(ctx context.Context, batch []events.DomainEvent) error {
	return nil
}

type stubStream struct {
	deltas []ports.CompletionDelta
	idx    int
}

func (s *stubStream) Next() (ports.CompletionDelta, error) {
	if s.idx < len(s.deltas) {
		d := s.deltas[s.idx]
		s.idx++
		return d, nil
	}
	return ports.CompletionDelta{}, io.EOF
}

func (s *stubStream) Close() error { return nil }

type stubCompletionClient struct {
	completion *ports.Completion
	deltas     []ports.CompletionDelta
}

func (c *stubCompletionClient) Complete(ctx context.Context, messages []valueobjects.Message) (*ports.Completion, error) {
	return c.completion, nil
}

func (c *stubCompletionClient) CompleteStreaming(ctx context.Context, messages []valueobjects.Message) (ports.CompletionStream, error) {
	return &stubStream{deltas: c.deltas}, nil
}

// testEnv wires real services over the fakes and mounts the handlers on the
// production route shapes.
type testEnv struct {
	branches *memBranchRepo
	accounts *memAccountRepo
	client   *stubCompletionClient
	router   http.Handler
}

// testAuth injects the authenticated user that the JWT middleware would have
// resolved in production. Requests without the header stay anonymous.
func testAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if userID := r.Header.Get("X-Test-User"); userID != "" {
			ctx := auth.SetUserInContext(r.Context(), &auth.UserContext{UserID: userID})
			r = r.WithContext(ctx)
		}
		next.ServeHTTP(w, r)
	})
}

func newTestEnv() *testEnv {
	logger := zap.NewNop()
	branches := newMemBranchRepo()
	accounts := newMemAccountRepo()
	client := &stubCompletionClient{}

	ledger := services.NewCreditLedger(accounts, stubIdentity{}, nopPublisher{}, 5.0, logger)
	branchSvc := services.NewBranchService(branches, ledger, nopPublisher{}, nil, logger)
	chatSvc := services.NewChatService(client, ledger, "gpt-4o-mini", nil, nil, logger)
	titleSvc := services.NewTitleSynthesizer(branchSvc, chatSvc, logger)

	errorHandler := pkgerrors.NewErrorHandler(logger)
	branchHandler := NewBranchHandler(branchSvc, errorHandler, logger)
	messageHandler := NewMessageHandler(branchSvc, errorHandler, logger)
	userHandler := NewUserHandler(ledger, errorHandler, logger)
	chatHandler := NewChatHandler(chatSvc, errorHandler, logger)
	titleHandler := NewTitleHandler(titleSvc, errorHandler, logger)

	router := chi.NewRouter()
	router.Use(testAuth)
	router.Get("/api/user", userHandler.GetUser)
	router.Post("/branch", branchHandler.CreateBranch)
	router.Get("/branches", branchHandler.ListBranches)
	router.Delete("/branch/{branchId}", branchHandler.DeleteBranch)
	router.Get("/parent/{branchId}", branchHandler.GetParent)
	router.Post("/parent/{branchId}", branchHandler.Relink)
	router.Get("/messages/{branchId}", messageHandler.GetMessages)
	router.Post("/messages/{branchId}", messageHandler.AppendMessage)
	router.Post("/title/{branchId}", branchHandler.SetTitle)
	router.Post("/title/generate/{branchId}", titleHandler.GenerateTitle)
	router.Post("/api/llm", chatHandler.StreamCompletion)

	return &testEnv{branches: branches, accounts: accounts, client: client, router: router}
}
