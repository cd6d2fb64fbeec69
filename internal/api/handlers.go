package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/mesh-intelligence/grid/internal/auth"
	"github.com/mesh-intelligence/grid/internal/grid"
	"github.com/mesh-intelligence/grid/pkg/types"
)

// maxBodyBytes bounds request bodies; the largest legitimate body is a
// single cell value.
const maxBodyBytes = 1 << 20

type CreateBaseRequest struct {
	Name string `json:"name"`
}

type CreateTableRequest struct {
	Name string `json:"name"`
}

type UpdateCellRequest struct {
	RowIndex int    `json:"rowIndex"`
	RowID    string `json:"rowId,omitempty"`
	ColumnID string `json:"columnId"`
	Value    any    `json:"value"`
}

type AddColumnRequest struct {
	ColumnName string `json:"columnName"`
	ColumnType string `json:"columnType"`
}

type AddBulkRowsRequest struct {
	Count int `json:"count"`
}

type SessionResponse struct {
	User *auth.User `json:"user"`
}

type GridHandler struct {
	svc *grid.Service
}

func NewGridHandler(svc *grid.Service) *GridHandler {
	return &GridHandler{svc: svc}
}

func (h *GridHandler) GetSession(w http.ResponseWriter, r *http.Request) {
	user, _ := auth.GetUserFromContext(r.Context())
	writeJSON(w, http.StatusOK, SessionResponse{User: user})
}

func (h *GridHandler) GetOrCreateDefaultTable(w http.ResponseWriter, r *http.Request) {
	agg, err := h.svc.GetOrCreateDefaultTable(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *GridHandler) GetBases(w http.ResponseWriter, r *http.Request) {
	bases, err := h.svc.GetBases(r.Context(), userID(r))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, bases)
}

func (h *GridHandler) CreateBase(w http.ResponseWriter, r *http.Request) {
	var req CreateBaseRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	base, err := h.svc.CreateBase(r.Context(), userID(r), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, base)
}

func (h *GridHandler) CreateTable(w http.ResponseWriter, r *http.Request) {
	var req CreateTableRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	agg, err := h.svc.CreateTable(r.Context(), userID(r), mux.Vars(r)["baseID"], req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, agg)
}

func (h *GridHandler) GetTable(w http.ResponseWriter, r *http.Request) {
	agg, err := h.svc.Aggregate(r.Context(), mux.Vars(r)["tableID"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *GridHandler) GetTableRows(w http.ResponseWriter, r *http.Request) {
	page, err := queryInt(r, "page", 0, types.ErrInvalidPage)
	if err != nil {
		writeError(w, r, err)
		return
	}
	limit, err := queryInt(r, "limit", h.svc.PageSize(), types.ErrInvalidLimit)
	if err != nil {
		writeError(w, r, err)
		return
	}

	rows, err := h.svc.GetTableRows(r.Context(), mux.Vars(r)["tableID"], page, limit)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (h *GridHandler) UpdateCell(w http.ResponseWriter, r *http.Request) {
	update, err := decodeCellUpdate(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	agg, err := h.svc.UpdateCell(r.Context(), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *GridHandler) PatchCell(w http.ResponseWriter, r *http.Request) {
	update, err := decodeCellUpdate(w, r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	patch, err := h.svc.PatchCell(r.Context(), update)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, patch)
}

func (h *GridHandler) AddColumn(w http.ResponseWriter, r *http.Request) {
	var req AddColumnRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	res, err := h.svc.AddColumn(r.Context(), mux.Vars(r)["tableID"], req.ColumnName, req.ColumnType)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (h *GridHandler) AddRow(w http.ResponseWriter, r *http.Request) {
	agg, err := h.svc.AddRow(r.Context(), mux.Vars(r)["tableID"])
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func (h *GridHandler) AddBulkRows(w http.ResponseWriter, r *http.Request) {
	var req AddBulkRowsRequest
	if err := decode(w, r, &req); err != nil {
		writeError(w, r, err)
		return
	}
	agg, err := h.svc.AddBulkRows(r.Context(), mux.Vars(r)["tableID"], req.Count)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, agg)
}

func userID(r *http.Request) string {
	if user, ok := auth.GetUserFromContext(r.Context()); ok {
		return user.ID
	}
	return ""
}

// decode reads a JSON body into v. Numbers decode as json.Number so cell
// values keep their precision until the store normalizes them.
func decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	dec.UseNumber()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: decoding request body: %v", types.ErrValidation, err)
	}
	return nil
}

func decodeCellUpdate(w http.ResponseWriter, r *http.Request) (types.CellUpdate, error) {
	var req UpdateCellRequest
	if err := decode(w, r, &req); err != nil {
		return types.CellUpdate{}, err
	}
	return types.CellUpdate{
		TableID:  mux.Vars(r)["tableID"],
		RowIndex: req.RowIndex,
		RowID:    req.RowID,
		ColumnID: req.ColumnID,
		Value:    req.Value,
	}, nil
}

func queryInt(r *http.Request, key string, def int, invalid error) (int, error) {
	s := r.URL.Query().Get(key)
	if s == "" {
		return def, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %s=%q", invalid, key, s)
	}
	return n, nil
}
