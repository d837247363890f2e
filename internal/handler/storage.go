package handler

import (
	"encoding/base64"
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"

	apperrors "github.com/homestash/homestash-server/internal/errors"
	"github.com/homestash/homestash-server/internal/service"
)

type StorageHandler struct {
	storageService *service.StorageService
}

func NewStorageHandler(storageService *service.StorageService) *StorageHandler {
	return &StorageHandler{storageService: storageService}
}

func (h *StorageHandler) RoomRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateRoom)
	r.Get("/", h.ListRooms)

	return r
}

func (h *StorageHandler) FurnitureRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateFurniture)
	r.Get("/", h.ListFurniture)

	return r
}

func (h *StorageHandler) CellRoutes() chi.Router {
	r := chi.NewRouter()

	r.Post("/", h.CreateCell)
	r.Get("/", h.ListCells)
	r.Get("/{cellCode}", h.GetCell)
	r.Get("/{cellCode}/label", h.CellLabel)

	return r
}

type namedRequest struct {
	Name string `json:"name"`
}

// POST /v1/rooms
func (h *StorageHandler) CreateRoom(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req namedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.MalformedPayload("invalid request body"))
		return
	}

	room, err := h.storageService.CreateRoom(r.Context(), account.ID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, room)
}

// GET /v1/rooms
func (h *StorageHandler) ListRooms(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	rooms, err := h.storageService.ListRooms(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"rooms": rooms,
		"count": len(rooms),
	})
}

// POST /v1/furniture
func (h *StorageHandler) CreateFurniture(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req namedRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.MalformedPayload("invalid request body"))
		return
	}

	furniture, err := h.storageService.CreateFurniture(r.Context(), account.ID, req.Name)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, furniture)
}

// GET /v1/furniture
func (h *StorageHandler) ListFurniture(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	furniture, err := h.storageService.ListFurniture(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"furniture": furniture,
		"count":     len(furniture),
	})
}

// POST /v1/storage-cells
//
// Allocates the next cell code in the given (room, furniture) pair and
// returns the cell with its rendered label.
func (h *StorageHandler) CreateCell(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	var req struct {
		RoomID      int64 `json:"roomId"`
		FurnitureID int64 `json:"furnitureId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperrors.MalformedPayload("invalid request body"))
		return
	}
	if req.RoomID == 0 {
		writeError(w, apperrors.MissingRequired("roomId"))
		return
	}
	if req.FurnitureID == 0 {
		writeError(w, apperrors.MissingRequired("furnitureId"))
		return
	}

	result, err := h.storageService.CreateCell(r.Context(), account.ID, req.RoomID, req.FurnitureID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]any{
		"cell":     result.Cell,
		"labelPng": base64.StdEncoding.EncodeToString(result.LabelPNG),
	})
}

// GET /v1/storage-cells
func (h *StorageHandler) ListCells(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}

	cells, err := h.storageService.ListCells(r.Context(), account.ID)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]any{
		"cells": cells,
		"count": len(cells),
	})
}

// GET /v1/storage-cells/{cellCode}
func (h *StorageHandler) GetCell(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}
	cellCode := chi.URLParam(r, "cellCode")

	cell, err := h.storageService.GetCell(r.Context(), account.ID, cellCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writeJSON(w, http.StatusOK, cell)
}

// GET /v1/storage-cells/{cellCode}/label
func (h *StorageHandler) CellLabel(w http.ResponseWriter, r *http.Request) {
	account, ok := requireAccount(w, r)
	if !ok {
		return
	}
	cellCode := chi.URLParam(r, "cellCode")

	png, err := h.storageService.CellLabel(r.Context(), account.ID, cellCode)
	if err != nil {
		writeError(w, err)
		return
	}

	writePNG(w, png)
}
