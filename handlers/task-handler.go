package handlers

import (
	"encoding/json"
	"net/http"
	"time"

	"taskhive/backend/middleware"
	"taskhive/backend/services"

	"github.com/gorilla/mux"
)

type TaskHandler struct {
	TaskService   *services.TaskService
	ReportService *services.ReportService
}

func NewTaskHandler(taskService *services.TaskService, reportService *services.ReportService) *TaskHandler {
	return &TaskHandler{TaskService: taskService, ReportService: reportService}
}

func (h *TaskHandler) CreateTask(w http.ResponseWriter, r *http.Request) {
	var req services.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid request payload"})
		return
	}

	task, err := h.TaskService.Create(r.Context(), middleware.UserID(r.Context()), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Task created successfully.", task)
}

func (h *TaskHandler) UpdateTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	var req services.TaskRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid request payload"})
		return
	}

	task, err := h.TaskService.Update(r.Context(), middleware.UserID(r.Context()), vars["id"], req)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Task updated successfully.", task)
}

func (h *TaskHandler) GetTasks(w http.ResponseWriter, r *http.Request) {
	filters := services.TaskFilters{
		Stage:     r.URL.Query().Get("stage"),
		IsTrashed: r.URL.Query().Get("isTrashed") == "true",
		Search:    r.URL.Query().Get("search"),
	}

	tasks, err := h.TaskService.List(r.Context(), middleware.UserID(r.Context()), filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", tasks)
}

func (h *TaskHandler) GetTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	task, err := h.TaskService.Get(r.Context(), middleware.UserID(r.Context()), vars["id"])
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", task)
}

func (h *TaskHandler) TrashTask(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)

	if err := h.TaskService.Trash(r.Context(), middleware.UserID(r.Context()), vars["id"]); err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "Task trashed successfully.", nil)
}

func (h *TaskHandler) GetPerformanceReport(w http.ResponseWriter, r *http.Request) {
	filters := services.ReportFilters{MemberID: r.URL.Query().Get("memberId")}

	if startStr, endStr := r.URL.Query().Get("startDate"), r.URL.Query().Get("endDate"); startStr != "" && endStr != "" {
		start, err := time.Parse("2006-01-02", startStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid startDate format, expected YYYY-MM-DD"})
			return
		}
		end, err := time.Parse("2006-01-02", endStr)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, Response{Status: false, Message: "Invalid endDate format, expected YYYY-MM-DD"})
			return
		}
		// Inclusive bounds: the end date covers the whole day.
		end = end.Add(24*time.Hour - time.Nanosecond)
		filters.StartDate = &start
		filters.EndDate = &end
	}

	report, err := h.ReportService.Performance(r.Context(), middleware.UserID(r.Context()), filters)
	if err != nil {
		writeServiceError(w, err)
		return
	}

	writeSuccess(w, http.StatusOK, "", report)
}
