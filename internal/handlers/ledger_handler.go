package handlers

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/shopspring/decimal"
	"github.com/shrdaa/backend/internal/models"
	"github.com/shrdaa/backend/internal/services"
)

type LedgerHandler struct {
	ledger    *services.LedgerService
	auth      *services.AuthService
	validator *services.ValidationHelper
	logger    *slog.Logger
}

func NewLedgerHandler(ledger *services.LedgerService, auth *services.AuthService, logger *slog.Logger) *LedgerHandler {
	return &LedgerHandler{
		ledger:    ledger,
		auth:      auth,
		validator: services.NewValidationHelper(),
		logger:    logger.With("module", "ledger"),
	}
}

// CreateAccountRequest represents the account creation payload. Balance is
// optional and overrides the role default.
type CreateAccountRequest struct {
	Name      string           `json:"name" validate:"required"`
	Age       int              `json:"age" validate:"gte=0,lte=150"`
	Location  string           `json:"location"`
	RankTitle string           `json:"rank_title" validate:"required"`
	Password  string           `json:"password" validate:"required"`
	Balance   *decimal.Decimal `json:"balance,omitempty"`
}

type CreateProjectRequest struct {
	AccountNos  []string `json:"account_nos" validate:"dive,required"`
	Description string   `json:"description" validate:"required"`
}

// TransactionRequest represents a transfer from the session account.
type TransactionRequest struct {
	ToAccountNo string          `json:"to_account_no" validate:"required"`
	ProjectNo   string          `json:"project_no" validate:"required"`
	Amount      decimal.Decimal `json:"amount"`
	Password    string          `json:"password" validate:"required"`
}

func session(w http.ResponseWriter, r *http.Request) (models.Session, bool) {
	s, ok := models.SessionFromContext(r.Context())
	if !ok {
		services.SendErrorResponse(w, "Unauthorized", http.StatusUnauthorized, nil)
	}
	return s, ok
}

// Me returns the session account
// @Summary Current account
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {object} models.Account
// @Router /accounts/me [get]
func (h *LedgerHandler) Me(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}

	acc, err := h.ledger.GetAccount(r.Context(), s.AccountNo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, acc)
}

// MyProjects lists the projects the session account may transact against
// @Summary Authorized projects
// @Tags accounts
// @Produce json
// @Security BearerAuth
// @Success 200 {array} models.Project
// @Router /accounts/me/projects [get]
func (h *LedgerHandler) MyProjects(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}

	projects, err := h.ledger.AccountProjects(r.Context(), s.AccountNo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// CreateAccount opens a new account
// @Summary Create account
// @Tags accounts
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateAccountRequest true "Account"
// @Success 201 {object} models.Account
// @Failure 400 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Router /accounts [post]
func (h *LedgerHandler) CreateAccount(w http.ResponseWriter, r *http.Request) {
	var req CreateAccountRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	acc, err := h.ledger.CreateAccount(r.Context(), services.NewAccount{
		Name:      req.Name,
		Age:       req.Age,
		Location:  req.Location,
		RankTitle: req.RankTitle,
		Password:  req.Password,
		Balance:   req.Balance,
	})
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	h.logger.Info("Account created", "account_no", acc.AccountNo, "role", acc.Role())
	writeJSON(w, http.StatusCreated, acc)
}

// CreateProject registers a project
// @Summary Create project
// @Tags projects
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body CreateProjectRequest true "Project"
// @Success 201 {object} models.Project
// @Router /projects [post]
func (h *LedgerHandler) CreateProject(w http.ResponseWriter, r *http.Request) {
	var req CreateProjectRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	projectNo, err := h.ledger.CreateProject(r.Context(), req.AccountNos, req.Description)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, models.Project{ProjectNo: projectNo, Description: req.Description})
}

// ListProjects lists every project
// @Summary List projects
// @Tags projects
// @Produce json
// @Success 200 {array} models.Project
// @Router /projects [get]
func (h *LedgerHandler) ListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := h.ledger.ListProjects(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, projects)
}

// ProjectLedger lists the ledger entries of a project
// @Summary Project ledger
// @Tags projects
// @Produce json
// @Param projectNo path string true "Project number"
// @Success 200 {array} models.LedgerEntry
// @Router /projects/{projectNo}/ledger [get]
func (h *LedgerHandler) ProjectLedger(w http.ResponseWriter, r *http.Request) {
	entries, err := h.ledger.LedgerByProject(r.Context(), chi.URLParam(r, "projectNo"))
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, entries)
}

// CreateTransaction transfers funds from the session account
// @Summary Create transaction
// @Tags transactions
// @Accept json
// @Produce json
// @Security BearerAuth
// @Param request body TransactionRequest true "Transfer"
// @Success 201 {object} models.LedgerEntry
// @Failure 400 {object} services.ErrorResponse
// @Failure 401 {object} services.ErrorResponse
// @Failure 403 {object} services.ErrorResponse
// @Failure 422 {object} services.ErrorResponse
// @Router /transactions [post]
func (h *LedgerHandler) CreateTransaction(w http.ResponseWriter, r *http.Request) {
	s, ok := session(w, r)
	if !ok {
		return
	}

	var req TransactionRequest
	if !decodeJSON(w, r, h.validator, &req) {
		return
	}

	if err := h.auth.AuthorizeTransaction(r.Context(), s, req.Password); err != nil {
		writeError(w, h.logger, err)
		return
	}

	entry, err := h.ledger.ProcessTransaction(r.Context(), s.AccountNo, req.ToAccountNo, req.ProjectNo, req.Amount)
	if err != nil {
		h.logger.Info("Transaction rejected", "from", s.AccountNo, "to", req.ToAccountNo, "project_no", req.ProjectNo, "error", err)
		writeError(w, h.logger, err)
		return
	}

	writeJSON(w, http.StatusCreated, entry)
}

// VerifyTransaction checks a transaction against its chain block
// @Summary Verify transaction
// @Tags transactions
// @Produce json
// @Security BearerAuth
// @Param txNo path string true "Transaction number"
// @Success 200 {object} object{transaction_no=string,verified=bool}
// @Failure 404 {object} services.ErrorResponse
// @Failure 409 {object} services.ErrorResponse
// @Router /transactions/{txNo}/verify [post]
func (h *LedgerHandler) VerifyTransaction(w http.ResponseWriter, r *http.Request) {
	txNo := chi.URLParam(r, "txNo")

	verified, err := h.ledger.VerifyTransaction(r.Context(), txNo)
	if err != nil {
		writeError(w, h.logger, err)
		return
	}

	if !verified {
		h.logger.Warn("Transaction failed verification", "transaction_no", txNo)
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"transaction_no": txNo,
		"verified":       verified,
	})
}

// ChainIntegrity walks the whole chain
// @Summary Chain integrity
// @Tags chain
// @Produce json
// @Security BearerAuth
// @Success 200 {object} services.ChainReport
// @Router /chain/integrity [get]
func (h *LedgerHandler) ChainIntegrity(w http.ResponseWriter, r *http.Request) {
	report, err := h.ledger.VerifyChainIntegrity(r.Context())
	if err != nil {
		writeError(w, h.logger, err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}
