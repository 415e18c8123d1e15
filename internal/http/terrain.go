package http

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"

	"github.com/farmville-istec/farmville/internal/models"
	"github.com/farmville-istec/farmville/internal/store"
	"github.com/farmville-istec/farmville/internal/validation"
)

type terrainRequest struct {
	Name         string  `json:"name"`
	Latitude     float64 `json:"latitude"`
	Longitude    float64 `json:"longitude"`
	CropType     string  `json:"cropType"`
	AreaHectares float64 `json:"areaHectares"`
	Notes        string  `json:"notes"`
}

func (h *Handler) decodeTerrain(w http.ResponseWriter, r *http.Request) (terrainRequest, bool) {
	var req terrainRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_BODY", "request body must be JSON")
		return req, false
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" {
		writeError(w, r, http.StatusBadRequest, "INVALID_NAME", "terrain name is required")
		return req, false
	}
	if err := validation.ValidateCoordinates(req.Latitude, req.Longitude); err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_COORDINATES", err.Error())
		return req, false
	}
	if req.AreaHectares < 0 {
		writeError(w, r, http.StatusBadRequest, "INVALID_AREA", "area must not be negative")
		return req, false
	}
	return req, true
}

// CreateTerrain handles POST /terrains (protected).
func (h *Handler) CreateTerrain(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return
	}
	req, ok := h.decodeTerrain(w, r)
	if !ok {
		return
	}

	terrain, err := h.terrains.Create(r.Context(), models.Terrain{
		UserID:       userID,
		Name:         req.Name,
		Latitude:     req.Latitude,
		Longitude:    req.Longitude,
		CropType:     req.CropType,
		AreaHectares: req.AreaHectares,
		Notes:        req.Notes,
	})
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not create terrain")
		return
	}
	writeJSON(w, http.StatusCreated, terrain)
}

// ListTerrains handles GET /terrains (protected): the caller's terrains only.
func (h *Handler) ListTerrains(w http.ResponseWriter, r *http.Request) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return
	}
	terrains, err := h.terrains.ByUser(r.Context(), userID)
	if err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not list terrains")
		return
	}
	if terrains == nil {
		terrains = []models.Terrain{}
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"count":    len(terrains),
		"terrains": terrains,
	})
}

// terrainForOwner loads the terrain and enforces ownership. Non-owners get
// 404, not 403, so terrain IDs are not probeable.
func (h *Handler) terrainForOwner(w http.ResponseWriter, r *http.Request) (models.Terrain, bool) {
	userID, ok := userIDFromContext(r.Context())
	if !ok {
		writeError(w, r, http.StatusUnauthorized, "MISSING_TOKEN", "authentication required")
		return models.Terrain{}, false
	}
	id, err := strconv.ParseInt(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		writeError(w, r, http.StatusBadRequest, "INVALID_ID", "terrain id must be an integer")
		return models.Terrain{}, false
	}
	terrain, err := h.terrains.ByID(r.Context(), id)
	if err != nil || terrain.UserID != userID {
		writeError(w, r, http.StatusNotFound, "TERRAIN_NOT_FOUND", "terrain not found")
		return models.Terrain{}, false
	}
	return terrain, true
}

// GetTerrain handles GET /terrains/{id} (protected).
func (h *Handler) GetTerrain(w http.ResponseWriter, r *http.Request) {
	terrain, ok := h.terrainForOwner(w, r)
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, terrain)
}

// UpdateTerrain handles PUT /terrains/{id} (protected).
func (h *Handler) UpdateTerrain(w http.ResponseWriter, r *http.Request) {
	terrain, ok := h.terrainForOwner(w, r)
	if !ok {
		return
	}
	req, ok := h.decodeTerrain(w, r)
	if !ok {
		return
	}

	terrain.Name = req.Name
	terrain.Latitude = req.Latitude
	terrain.Longitude = req.Longitude
	terrain.CropType = req.CropType
	terrain.AreaHectares = req.AreaHectares
	terrain.Notes = req.Notes

	if err := h.terrains.Update(r.Context(), terrain); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			writeError(w, r, http.StatusNotFound, "TERRAIN_NOT_FOUND", "terrain not found")
			return
		}
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not update terrain")
		return
	}
	writeJSON(w, http.StatusOK, terrain)
}

// DeleteTerrain handles DELETE /terrains/{id} (protected).
func (h *Handler) DeleteTerrain(w http.ResponseWriter, r *http.Request) {
	terrain, ok := h.terrainForOwner(w, r)
	if !ok {
		return
	}
	if err := h.terrains.Delete(r.Context(), terrain.ID); err != nil {
		writeError(w, r, http.StatusInternalServerError, "INTERNAL", "could not delete terrain")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"deleted": terrain.ID})
}
