package main

import (
	"context"
	"net/http"
	"os"
	"strconv"
	"time"

	"taskhive/backend/handlers"
	"taskhive/backend/logging"
	"taskhive/backend/middleware"
	"taskhive/backend/realtime"
	"taskhive/backend/repositories"
	"taskhive/backend/services"
	"taskhive/backend/utils"

	"github.com/gorilla/mux"
	"github.com/joho/godotenv"
	"github.com/robfig/cron/v3"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

func enableCORS(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", os.Getenv("CORS_ORIGIN"))
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		w.Header().Set("Access-Control-Allow-Credentials", "true")

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}

		next.ServeHTTP(w, r)
	})
}

func main() {
	logging.InitLogger()

	logging.Logger.Info("Event ID: SERVICE_START, Description: Starting TaskHive backend...")
	if err := godotenv.Load(".env"); err != nil {
		logging.Logger.Warnf("Event ID: ENV_LOAD_WARNING, Description: No .env file loaded: %v", err)
	}

	mongoURI := os.Getenv("MONGO_URI")
	if mongoURI == "" {
		mongoURI = "mongodb://localhost:27017"
	}
	mongoDBName := os.Getenv("MONGO_DB_NAME")
	if mongoDBName == "" {
		mongoDBName = "taskhive"
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(mongoURI))
	if err != nil {
		logging.Logger.Fatalf("Event ID: DB_CONNECTION_FAILED, Description: Database connection for MongoDB failed: %v", err)
	}
	defer client.Disconnect(context.Background())

	if err := client.Ping(ctx, nil); err != nil {
		logging.Logger.Fatalf("Event ID: DB_PING_FAILED, Description: MongoDB connection ping error: %v", err)
	}
	logging.Logger.Infof("Event ID: DB_CONNECTED, Description: Successfully connected to MongoDB at %s.", mongoURI)

	db := client.Database(mongoDBName)
	usersCollection := db.Collection("users")
	tasksCollection := db.Collection("tasks")
	activitiesCollection := db.Collection("activities")
	remindersCollection := db.Collection("reminders")
	notificationsCollection := db.Collection("notifications")

	completedOffset := 7
	if v := os.Getenv("COMPLETED_AT_UTC_OFFSET"); v != "" {
		if parsed, err := strconv.Atoi(v); err == nil {
			completedOffset = parsed
		}
	}

	hub := realtime.NewHub()

	notificationRepo := repositories.NewNotificationRepo(notificationsCollection)
	reminderRepo := repositories.NewReminderRepo(remindersCollection, tasksCollection)
	mailer := utils.NewBreakerMailer()

	userService := services.NewUserService(usersCollection)
	teamService := services.NewTeamService(usersCollection, hub)
	notificationService := services.NewNotificationService(notificationRepo, hub)
	taskService := services.NewTaskService(tasksCollection, usersCollection, activitiesCollection, remindersCollection, notificationService, hub, completedOffset)
	reminderService := services.NewReminderService(reminderRepo, notificationService, mailer, hub)
	reportService := services.NewReportService(tasksCollection, usersCollection)

	userHandler := handlers.NewUserHandler(userService, teamService)
	loginHandler := &handlers.LoginHandler{UserService: userService}
	taskHandler := handlers.NewTaskHandler(taskService, reportService)
	notificationHandler := handlers.NewNotificationHandler(notificationService)

	// Reminder scheduler: scan for due reminders once per minute. Ticks are
	// skipped while a previous scan is still running so a reminder is never
	// picked up by two overlapping runs.
	scheduler := cron.New(cron.WithChain(cron.SkipIfStillRunning(cron.PrintfLogger(logging.Logger))))
	if _, err := scheduler.AddFunc("* * * * *", func() {
		cronCtx, cronCancel := context.WithTimeout(context.Background(), 50*time.Second)
		defer cronCancel()
		if sent := reminderService.ProcessDue(cronCtx, time.Now()); sent > 0 {
			logging.Logger.Infof("Event ID: REMINDERS_SENT, Description: Dispatched %d due reminder(s)", sent)
		}
	}); err != nil {
		logging.Logger.Fatalf("Event ID: SCHEDULER_INIT_FAILED, Description: Failed to register reminder job: %v", err)
	}
	scheduler.Start()
	defer scheduler.Stop()

	r := mux.NewRouter()

	// Public routes
	r.HandleFunc("/api/users/register", userHandler.Register).Methods(http.MethodPost)
	r.HandleFunc("/api/users/login", loginHandler.Login).Methods(http.MethodPost)
	r.HandleFunc("/api/users/logout", loginHandler.Logout).Methods(http.MethodPost)

	// Protected routes
	protected := r.PathPrefix("/api").Subrouter()
	protected.Use(middleware.JWTAuthMiddleware)

	protected.HandleFunc("/users/profile", userHandler.UpdateProfile).Methods(http.MethodPut)
	protected.HandleFunc("/users/change-password", userHandler.ChangePassword).Methods(http.MethodPut)
	protected.HandleFunc("/users/team", userHandler.GetTeamList).Methods(http.MethodGet)
	protected.HandleFunc("/users/pm-team", userHandler.GetPMTeamList).Methods(http.MethodGet)
	protected.HandleFunc("/users/add-user", userHandler.AddUser).Methods(http.MethodPost)
	protected.HandleFunc("/users/create-admin", userHandler.CreateAdmin).Methods(http.MethodPost)
	protected.HandleFunc("/users/team/add", userHandler.AddTeamMember).Methods(http.MethodPost)
	protected.HandleFunc("/users/team/remove", userHandler.RemoveTeamMember).Methods(http.MethodPost)
	protected.HandleFunc("/users/{id}", userHandler.DeleteUser).Methods(http.MethodDelete)

	protected.HandleFunc("/tasks", taskHandler.CreateTask).Methods(http.MethodPost)
	protected.HandleFunc("/tasks", taskHandler.GetTasks).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/performance", taskHandler.GetPerformanceReport).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/update/{id}", taskHandler.UpdateTask).Methods(http.MethodPut)
	protected.HandleFunc("/tasks/{id}", taskHandler.GetTask).Methods(http.MethodGet)
	protected.HandleFunc("/tasks/{id}", taskHandler.TrashTask).Methods(http.MethodPut)

	protected.HandleFunc("/notifications", notificationHandler.GetNotifications).Methods(http.MethodGet)
	protected.HandleFunc("/notifications/{id}/read", notificationHandler.MarkRead).Methods(http.MethodPut)
	protected.HandleFunc("/notifications/{id}", notificationHandler.DeleteNotification).Methods(http.MethodDelete)

	// Realtime channel
	ws := r.PathPrefix("/ws").Subrouter()
	ws.Use(middleware.JWTAuthMiddleware)
	ws.HandleFunc("", func(w http.ResponseWriter, r *http.Request) {
		hub.ServeWS(w, r, middleware.UserID(r.Context()))
	}).Methods(http.MethodGet)

	port := os.Getenv("SERVER_PORT")
	if port == "" {
		port = "8282"
	}

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      enableCORS(r),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logging.Logger.Infof("Event ID: SERVER_LISTENING, Description: Server is running on port %s", port)
	if err := srv.ListenAndServe(); err != nil {
		logging.Logger.Fatalf("Event ID: SERVER_FAILED, Description: Server stopped: %v", err)
	}
}
