package services

import (
	"context"
	"fmt"
	"time"

	"taskhive/backend/logging"
	"taskhive/backend/models"
	"taskhive/backend/realtime"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

type TaskService struct {
	TasksCollection      *mongo.Collection
	UsersCollection      *mongo.Collection
	ActivitiesCollection *mongo.Collection
	RemindersCollection  *mongo.Collection
	Notifications        *NotificationService
	Hub                  *realtime.Hub

	// completedAt is stamped at now plus this fixed deployment offset.
	CompletedAtUTCOffset int
}

func NewTaskService(
	tasks, users, activities, reminders *mongo.Collection,
	notifications *NotificationService,
	hub *realtime.Hub,
	completedAtUTCOffset int,
) *TaskService {
	return &TaskService{
		TasksCollection:      tasks,
		UsersCollection:      users,
		ActivitiesCollection: activities,
		RemindersCollection:  reminders,
		Notifications:        notifications,
		Hub:                  hub,
		CompletedAtUTCOffset: completedAtUTCOffset,
	}
}

type ReminderInput struct {
	Time    time.Time           `json:"time"`
	Type    models.ReminderType `json:"type"`
	Message string              `json:"message"`
}

type TaskRequest struct {
	Title          string          `json:"title"`
	Team           []string        `json:"team"`
	Stage          string          `json:"stage"`
	Priority       string          `json:"priority"`
	Date           time.Time       `json:"date"`
	StartDate      *time.Time      `json:"startDate,omitempty"`
	DueDate        *time.Time      `json:"dueDate,omitempty"`
	Links          string          `json:"links"`
	Assets         []string        `json:"assets"`
	Description    string          `json:"description"`
	Reminders      []ReminderInput `json:"reminders"`
	Dependencies   []string        `json:"dependencies"`
	EstimatedHours float64         `json:"estimatedHours"`
}

func parseObjectIDs(hexIDs []string) ([]primitive.ObjectID, error) {
	out := make([]primitive.ObjectID, 0, len(hexIDs))
	for _, h := range hexIDs {
		if h == "" {
			continue
		}
		id, err := primitive.ObjectIDFromHex(h)
		if err != nil {
			return nil, fmt.Errorf("%w: invalid ID format: %s", ErrValidation, h)
		}
		out = append(out, id)
	}
	return out, nil
}

func (s *TaskService) userByHexID(ctx context.Context, id string) (*models.User, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid user ID format", ErrValidation)
	}
	var user models.User
	if err := s.UsersCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&user); err != nil {
		return nil, fmt.Errorf("%w: user not found", ErrNotFound)
	}
	return &user, nil
}

func (s *TaskService) taskByHexID(ctx context.Context, id string) (*models.Task, error) {
	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid task ID format", ErrValidation)
	}
	var task models.Task
	if err := s.TasksCollection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&task); err != nil {
		return nil, fmt.Errorf("%w: task not found", ErrNotFound)
	}
	return &task, nil
}

// appendActivity creates an append-only activity record and links it onto the
// task's activity sequence.
func (s *TaskService) appendActivity(ctx context.Context, task *models.Task, aType models.ActivityType, text string, by primitive.ObjectID) error {
	activity := models.Activity{
		ID:        primitive.NewObjectID(),
		Type:      aType,
		Activity:  text,
		By:        by,
		Task:      task.ID,
		CreatedAt: time.Now(),
	}
	if _, err := s.ActivitiesCollection.InsertOne(ctx, activity); err != nil {
		return fmt.Errorf("failed to create activity: %v", err)
	}

	task.Activities = append(task.Activities, activity.ID)
	_, err := s.TasksCollection.UpdateOne(ctx, bson.M{"_id": task.ID},
		bson.M{"$push": bson.M{"activities": activity.ID}})
	if err != nil {
		return fmt.Errorf("failed to link activity to task: %v", err)
	}
	return nil
}

// replaceReminders swaps the task's pending reminder set for the incoming
// one. Reminders already dispatched keep their documents so a sent flag never
// reverts.
func (s *TaskService) replaceReminders(ctx context.Context, task *models.Task, inputs []ReminderInput) {
	cursor, err := s.RemindersCollection.Find(ctx, bson.M{"task": task.ID})
	if err != nil {
		logging.Logger.Errorf("Event ID: REMINDER_REPLACE_FAILED, Description: Failed to load reminders for task %s: %v", task.ID.Hex(), err)
		return
	}
	var existing []models.Reminder
	if err := cursor.All(ctx, &existing); err != nil {
		logging.Logger.Errorf("Event ID: REMINDER_REPLACE_FAILED, Description: Failed to decode reminders for task %s: %v", task.ID.Hex(), err)
		return
	}

	keep, drop := models.PendingReplacement(existing)
	if len(drop) > 0 {
		if _, err := s.RemindersCollection.DeleteMany(ctx, bson.M{"_id": bson.M{"$in": drop}}); err != nil {
			logging.Logger.Errorf("Event ID: REMINDER_REPLACE_FAILED, Description: Failed to clear pending reminders for task %s: %v", task.ID.Hex(), err)
			return
		}
	}

	for _, rem := range inputs {
		reminder := models.Reminder{
			ID:      primitive.NewObjectID(),
			Task:    task.ID,
			Time:    rem.Time,
			Type:    rem.Type,
			Message: rem.Message,
			Sent:    false,
		}
		if _, err := s.RemindersCollection.InsertOne(ctx, reminder); err != nil {
			logging.Logger.Errorf("Event ID: REMINDER_INSERT_FAILED, Description: Failed to create reminder for task %s: %v", task.ID.Hex(), err)
			continue
		}
		keep = append(keep, reminder.ID)
	}
	if keep == nil {
		keep = []primitive.ObjectID{}
	}
	task.Reminders = keep
}

// Create inserts a new task owned by the creator. The creator must be an
// admin or project manager and always ends up on the team.
func (s *TaskService) Create(ctx context.Context, creatorID string, req TaskRequest) (*models.Task, error) {
	creator, err := s.userByHexID(ctx, creatorID)
	if err != nil {
		return nil, err
	}
	if !creator.Role.CanCreateTask() {
		return nil, fmt.Errorf("%w: only project managers and admins can create tasks", ErrForbidden)
	}

	if req.Title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrValidation)
	}

	team, err := parseObjectIDs(req.Team)
	if err != nil {
		return nil, err
	}
	dependencies, err := parseObjectIDs(req.Dependencies)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	task := models.Task{
		ID:             primitive.NewObjectID(),
		Title:          req.Title,
		ProjectManager: creator.ID,
		Team:           models.TeamWithManager(team, creator.ID),
		Stage:          models.NormalizeStage(req.Stage),
		Priority:       models.NormalizePriority(req.Priority),
		Date:           req.Date,
		StartDate:      req.StartDate,
		DueDate:        req.DueDate,
		Links:          models.ParseLinks(req.Links),
		Assets:         req.Assets,
		Description:    req.Description,
		Reminders:      []primitive.ObjectID{},
		Dependencies:   dependencies,
		EstimatedHours: req.EstimatedHours,
		Activities:     []primitive.ObjectID{},
		Comments:       []primitive.ObjectID{},
		SubTasks:       []primitive.ObjectID{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}

	if _, err := s.TasksCollection.InsertOne(ctx, task); err != nil {
		logging.Logger.Errorf("Event ID: TASK_INSERT_FAILED, Description: Failed to create task %q: %v", req.Title, err)
		return nil, fmt.Errorf("failed to create task")
	}

	for _, rem := range req.Reminders {
		reminder := models.Reminder{
			ID:      primitive.NewObjectID(),
			Task:    task.ID,
			Time:    rem.Time,
			Type:    rem.Type,
			Message: rem.Message,
			Sent:    false,
		}
		if _, err := s.RemindersCollection.InsertOne(ctx, reminder); err != nil {
			logging.Logger.Errorf("Event ID: REMINDER_INSERT_FAILED, Description: Failed to create reminder for task %s: %v", task.ID.Hex(), err)
			continue
		}
		task.Reminders = append(task.Reminders, reminder.ID)
	}
	if len(task.Reminders) > 0 {
		s.TasksCollection.UpdateOne(ctx, bson.M{"_id": task.ID},
			bson.M{"$set": bson.M{"reminders": task.Reminders}})
	}

	text := "New task has been assigned to you"
	if len(task.Team) > 1 {
		text = fmt.Sprintf("New task has been assigned to you and %d others.", len(task.Team)-1)
	}
	text = fmt.Sprintf("%s The task priority is set a %s priority, so check and act accordingly. The task date is %s. Thank you!!!",
		text, task.Priority, task.Date.Format("Mon Jan 2 2006"))

	if err := s.appendActivity(ctx, &task, models.ActivityAssigned, text, creator.ID); err != nil {
		logging.Logger.Errorf("Event ID: ACTIVITY_APPEND_FAILED, Description: %v", err)
	}

	s.Notifications.FanOutForTask(ctx, &task, creator.ID, models.NotificationTaskAssigned,
		"New Task Assigned", fmt.Sprintf("You have been assigned to task: %s", task.Title))

	// Back-reference the task onto every team member's task list.
	if _, err := s.UsersCollection.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": task.Team}},
		bson.M{"$push": bson.M{"tasks": task.ID}}); err != nil {
		logging.Logger.Warnf("Event ID: TASK_BACKREF_FAILED, Description: Failed to link task %s onto member task lists: %v", task.ID.Hex(), err)
	}

	s.Hub.EmitToRoom(realtime.TeamRoom(creator.ID.Hex()), "task-updated-team", map[string]string{"taskId": task.ID.Hex()})

	return &task, nil
}

// Update applies client changes to a task. Only an admin or the task's stored
// project manager may update; the team invariant is re-asserted against the
// stored manager, never a client-supplied one.
func (s *TaskService) Update(ctx context.Context, requesterID, taskID string, req TaskRequest) (*models.Task, error) {
	task, err := s.taskByHexID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	requester, err := s.userByHexID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !requester.Role.CanAdminister() && task.ProjectManager != requester.ID {
		return nil, fmt.Errorf("%w: only the project manager or admin can update this task", ErrForbidden)
	}

	team, err := parseObjectIDs(req.Team)
	if err != nil {
		return nil, err
	}
	dependencies, err := parseObjectIDs(req.Dependencies)
	if err != nil {
		return nil, err
	}

	nextStage := models.NormalizeStage(req.Stage)
	dueDateChanged := models.DueDateChanged(task.DueDate, req.DueDate)

	task.Title = req.Title
	task.Date = req.Date
	task.Priority = models.NormalizePriority(req.Priority)
	task.Stage = nextStage
	task.Team = models.TeamWithManager(team, task.ProjectManager)
	task.Links = models.ParseLinks(req.Links)
	task.Assets = req.Assets
	task.Description = req.Description
	task.StartDate = req.StartDate
	task.DueDate = req.DueDate
	if len(dependencies) > 0 {
		task.Dependencies = dependencies
	}
	if req.EstimatedHours > 0 {
		task.EstimatedHours = req.EstimatedHours
	}
	task.CompletedAt = models.CompletionStamp(task.CompletedAt, nextStage, time.Now(), s.CompletedAtUTCOffset)
	task.UpdatedAt = time.Now()

	// A nil reminder list leaves the stored set alone; a provided one (empty
	// included) replaces the pending reminders.
	if req.Reminders != nil {
		s.replaceReminders(ctx, task, req.Reminders)
	}

	update := bson.M{"$set": bson.M{
		"title":          task.Title,
		"date":           task.Date,
		"priority":       task.Priority,
		"stage":          task.Stage,
		"team":           task.Team,
		"links":          task.Links,
		"assets":         task.Assets,
		"description":    task.Description,
		"startDate":      task.StartDate,
		"dueDate":        task.DueDate,
		"dependencies":   task.Dependencies,
		"estimatedHours": task.EstimatedHours,
		"reminders":      task.Reminders,
		"completedAt":    task.CompletedAt,
		"updatedAt":      task.UpdatedAt,
	}}
	if _, err := s.TasksCollection.UpdateOne(ctx, bson.M{"_id": task.ID}, update); err != nil {
		logging.Logger.Errorf("Event ID: TASK_UPDATE_FAILED, Description: Failed to update task %s: %v", taskID, err)
		return nil, fmt.Errorf("failed to update task")
	}

	if dueDateChanged {
		text := "Due date removed"
		if req.DueDate != nil {
			text = fmt.Sprintf("Due date updated to %s", req.DueDate.Format("Mon Jan 2 2006"))
		}
		if err := s.appendActivity(ctx, task, models.ActivityDueDateUpdated, text, requester.ID); err != nil {
			logging.Logger.Errorf("Event ID: ACTIVITY_APPEND_FAILED, Description: %v", err)
		}
	}

	s.Hub.EmitToTask(taskID, "task-updated", map[string]string{"taskId": taskID})
	s.Hub.Broadcast("task-updated-global", map[string]string{"taskId": taskID})

	return task, nil
}

type TaskFilters struct {
	Stage     string
	IsTrashed bool
	Search    string
}

// TaskListItem is a task with display references resolved, mirroring what the
// client renders in the board view.
type TaskListItem struct {
	models.Task
	ProjectManagerDetail *models.MemberRef  `json:"projectManagerDetail,omitempty"`
	TeamDetail           []models.MemberRef `json:"teamDetail,omitempty"`
	SubTaskDetail        []models.Task      `json:"subTaskDetail,omitempty"`
}

func (s *TaskService) usersByIDs(ctx context.Context, ids []primitive.ObjectID) (map[primitive.ObjectID]models.User, error) {
	out := make(map[primitive.ObjectID]models.User, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	cursor, err := s.UsersCollection.Find(ctx, bson.M{"_id": bson.M{"$in": ids}})
	if err != nil {
		return nil, fmt.Errorf("failed to fetch users: %v", err)
	}
	defer cursor.Close(ctx)

	var users []models.User
	if err := cursor.All(ctx, &users); err != nil {
		return nil, fmt.Errorf("failed to parse users: %v", err)
	}
	for _, u := range users {
		out[u.ID] = u
	}
	return out, nil
}

// List returns tasks visible to the requester, newest first. Admins see
// everything, PMs only tasks they own, members only tasks they are on.
func (s *TaskService) List(ctx context.Context, requesterID string, filters TaskFilters) ([]TaskListItem, error) {
	requester, err := s.userByHexID(ctx, requesterID)
	if err != nil {
		return nil, err
	}

	query := bson.M{"isTrashed": filters.IsTrashed}
	switch {
	case requester.Role.CanAdminister():
	case requester.Role.CanManageTeam():
		query["projectManager"] = requester.ID
	default:
		query["team"] = bson.M{"$all": bson.A{requester.ID}}
	}

	if filters.Stage != "" {
		query["stage"] = filters.Stage
	}
	if filters.Search != "" {
		query["$or"] = bson.A{
			bson.M{"title": bson.M{"$regex": filters.Search, "$options": "i"}},
			bson.M{"stage": bson.M{"$regex": filters.Search, "$options": "i"}},
			bson.M{"priority": bson.M{"$regex": filters.Search, "$options": "i"}},
		}
	}

	opts := options.Find().SetSort(bson.M{"_id": -1})
	cursor, err := s.TasksCollection.Find(ctx, query, opts)
	if err != nil {
		logging.Logger.Errorf("Event ID: TASK_LIST_FAILED, Description: Failed to list tasks: %v", err)
		return nil, fmt.Errorf("failed to retrieve tasks")
	}
	defer cursor.Close(ctx)

	var tasks []models.Task
	if err := cursor.All(ctx, &tasks); err != nil {
		return nil, fmt.Errorf("failed to parse tasks")
	}

	// Resolve every referenced user in one query.
	var userIDs []primitive.ObjectID
	seen := map[primitive.ObjectID]bool{}
	for i := range tasks {
		for _, id := range append([]primitive.ObjectID{tasks[i].ProjectManager}, tasks[i].Team...) {
			if !seen[id] {
				seen[id] = true
				userIDs = append(userIDs, id)
			}
		}
	}
	userMap, err := s.usersByIDs(ctx, userIDs)
	if err != nil {
		return nil, err
	}

	items := make([]TaskListItem, 0, len(tasks))
	for i := range tasks {
		item := TaskListItem{Task: tasks[i]}
		if pm, ok := userMap[tasks[i].ProjectManager]; ok {
			item.ProjectManagerDetail = &models.MemberRef{ID: pm.ID, Name: pm.Name, Email: pm.Email}
		}
		for _, memberID := range tasks[i].Team {
			if m, ok := userMap[memberID]; ok {
				item.TeamDetail = append(item.TeamDetail, models.MemberRef{ID: m.ID, Name: m.Name, Email: m.Email})
			}
		}
		if len(tasks[i].SubTasks) > 0 {
			subCursor, err := s.TasksCollection.Find(ctx, bson.M{"_id": bson.M{"$in": tasks[i].SubTasks}})
			if err == nil {
				subCursor.All(ctx, &item.SubTaskDetail)
			}
		}
		items = append(items, item)
	}
	return items, nil
}

// ActivityView is an activity with its actor resolved.
type ActivityView struct {
	models.Activity
	ByDetail models.MemberRef `json:"byDetail"`
}

// TaskDetail is a single task with every nested reference resolved for the
// detail view. Nested records whose required references no longer resolve are
// filtered out rather than failing the read.
type TaskDetail struct {
	TaskListItem
	ActivitiesDetail   []ActivityView    `json:"activitiesDetail"`
	RemindersDetail    []models.Reminder `json:"remindersDetail"`
	DependenciesDetail []models.Task     `json:"dependenciesDetail"`
}

// Get returns one task with activities, reminders and dependencies populated.
// The requester must be an admin, the owning PM, or a team member.
func (s *TaskService) Get(ctx context.Context, requesterID, taskID string) (*TaskDetail, error) {
	task, err := s.taskByHexID(ctx, taskID)
	if err != nil {
		return nil, err
	}

	requester, err := s.userByHexID(ctx, requesterID)
	if err != nil {
		return nil, err
	}
	if !task.VisibleTo(requester) {
		return nil, fmt.Errorf("%w: you don't have permission to access this task", ErrForbidden)
	}

	detail := &TaskDetail{
		TaskListItem:       TaskListItem{Task: *task},
		ActivitiesDetail:   []ActivityView{},
		RemindersDetail:    []models.Reminder{},
		DependenciesDetail: []models.Task{},
	}

	userMap, err := s.usersByIDs(ctx, append([]primitive.ObjectID{task.ProjectManager}, task.Team...))
	if err != nil {
		return nil, err
	}
	if pm, ok := userMap[task.ProjectManager]; ok {
		detail.ProjectManagerDetail = &models.MemberRef{ID: pm.ID, Name: pm.Name, Email: pm.Email}
	}
	for _, memberID := range task.Team {
		if m, ok := userMap[memberID]; ok {
			detail.TeamDetail = append(detail.TeamDetail, models.MemberRef{ID: m.ID, Name: m.Name, Email: m.Email})
		}
	}

	if len(task.Activities) > 0 {
		cursor, err := s.ActivitiesCollection.Find(ctx, bson.M{"_id": bson.M{"$in": task.Activities}})
		if err == nil {
			var activities []models.Activity
			if err := cursor.All(ctx, &activities); err == nil {
				var actorIDs []primitive.ObjectID
				for _, a := range activities {
					actorIDs = append(actorIDs, a.By)
				}
				actorMap, _ := s.usersByIDs(ctx, actorIDs)
				for _, a := range activities {
					actor, ok := actorMap[a.By]
					if !ok {
						// Actor was hard-deleted; drop the record rather than
						// surfacing a dangling reference.
						continue
					}
					detail.ActivitiesDetail = append(detail.ActivitiesDetail, ActivityView{
						Activity: a,
						ByDetail: models.MemberRef{ID: actor.ID, Name: actor.Name, Email: actor.Email},
					})
				}
			}
		}
	}

	if len(task.Reminders) > 0 {
		cursor, err := s.RemindersCollection.Find(ctx, bson.M{"_id": bson.M{"$in": task.Reminders}})
		if err == nil {
			var reminders []models.Reminder
			if err := cursor.All(ctx, &reminders); err == nil {
				for _, r := range reminders {
					if r.Time.IsZero() {
						continue
					}
					detail.RemindersDetail = append(detail.RemindersDetail, r)
				}
			}
		}
	}

	if len(task.Dependencies) > 0 {
		cursor, err := s.TasksCollection.Find(ctx, bson.M{"_id": bson.M{"$in": task.Dependencies}})
		if err == nil {
			cursor.All(ctx, &detail.DependenciesDetail)
		}
	}

	return detail, nil
}

// Trash soft-deletes a task. Ownership is enforced here as well as at the
// route so a mis-wired route cannot skip the check.
func (s *TaskService) Trash(ctx context.Context, requesterID, taskID string) error {
	task, err := s.taskByHexID(ctx, taskID)
	if err != nil {
		return err
	}

	requester, err := s.userByHexID(ctx, requesterID)
	if err != nil {
		return err
	}
	if !requester.Role.CanAdminister() && task.ProjectManager != requester.ID {
		return fmt.Errorf("%w: only the project manager or admin can trash this task", ErrForbidden)
	}

	_, err = s.TasksCollection.UpdateOne(ctx, bson.M{"_id": task.ID},
		bson.M{"$set": bson.M{"isTrashed": true, "updatedAt": time.Now()}})
	if err != nil {
		logging.Logger.Errorf("Event ID: TASK_TRASH_FAILED, Description: Failed to trash task %s: %v", taskID, err)
		return fmt.Errorf("failed to trash task")
	}
	return nil
}
