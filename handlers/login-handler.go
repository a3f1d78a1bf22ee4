package handlers

import (
	"encoding/json"
	"net/http"

	"taskhive/backend/services"
	"taskhive/backend/utils"
)

type LoginHandler struct {
	UserService *services.UserService
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (h *LoginHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid request format"})
		return
	}

	user, err := h.UserService.Login(r.Context(), req.Email, req.Password)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	if err := utils.SetTokenCookie(w, user.ID.Hex(), string(user.Role)); err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Status: false, Message: "Something went wrong"})
		return
	}

	writeSuccess(w, http.StatusOK, "", user)
}

func (h *LoginHandler) Logout(w http.ResponseWriter, r *http.Request) {
	utils.ClearTokenCookie(w)
	writeSuccess(w, http.StatusOK, "Logged out successfully", nil)
}
