package handlers

import (
	"encoding/json"
	"net/http"

	"taskhive/backend/middleware"
	"taskhive/backend/services"
	"taskhive/backend/utils"

	"github.com/gorilla/mux"
)

type UserHandler struct {
	UserService *services.UserService
	TeamService *services.TeamService
}

func NewUserHandler(userService *services.UserService, teamService *services.TeamService) *UserHandler {
	return &UserHandler{UserService: userService, TeamService: teamService}
}

func (h *UserHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid request payload"})
		return
	}

	user, err := h.UserService.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	// Self-registration logs the new account straight in.
	if err := utils.SetTokenCookie(w, user.ID.Hex(), string(user.Role)); err != nil {
		writeJSON(w, http.StatusInternalServerError, Response{Status: false, Message: "Something went wrong"})
		return
	}

	writeSuccess(w, http.StatusCreated, "Account created successfully! Welcome to our platform.", user)
}

func (h *UserHandler) UpdateProfile(w http.ResponseWriter, r *http.Request) {
	var req services.UpdateProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid request payload"})
		return
	}

	user, err := h.UserService.UpdateProfile(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Profile Updated Successfully.", user)
}

func (h *UserHandler) ChangePassword(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Password string `json:"password"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid request payload"})
		return
	}

	if err := h.UserService.ChangePassword(r.Context(), middleware.UserID(r.Context()), req.Password); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Password changed successfully.", nil)
}

func (h *UserHandler) AddUser(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid request payload"})
		return
	}

	user, err := h.UserService.AddUserByAdmin(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "User added successfully!", user)
}

func (h *UserHandler) CreateAdmin(w http.ResponseWriter, r *http.Request) {
	var req services.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid request payload"})
		return
	}

	user, err := h.UserService.CreateAdminUser(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusCreated, "Admin user created successfully!", user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.UserService.Delete(r.Context(), middleware.UserID(r.Context()), vars["id"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User deleted successfully", nil)
}

func (h *UserHandler) GetTeamList(w http.ResponseWriter, r *http.Request) {
	users, err := h.TeamService.TeamList(r.Context(), middleware.UserID(r.Context()), r.URL.Query().Get("search"))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", users)
}

func (h *UserHandler) GetPMTeamList(w http.ResponseWriter, r *http.Request) {
	users, err := h.TeamService.PMTeamList(r.Context(), middleware.UserID(r.Context()))
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", users)
}

func (h *UserHandler) AddTeamMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Email string `json:"email"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid request payload"})
		return
	}

	member, err := h.TeamService.AddMember(r.Context(), middleware.UserID(r.Context()), req.Email)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User added to team successfully.", member)
}

func (h *UserHandler) RemoveTeamMember(w http.ResponseWriter, r *http.Request) {
	var req struct {
		UserIDToRemove string `json:"userIdToRemove"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid request payload"})
		return
	}

	if err := h.TeamService.RemoveMember(r.Context(), middleware.UserID(r.Context()), req.UserIDToRemove); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "User removed from team successfully.", nil)
}
