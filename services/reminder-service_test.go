package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"taskhive/backend/models"
	"taskhive/backend/realtime"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type fakeReminderStore struct {
	reminders []models.Reminder
	tasks     map[primitive.ObjectID]*models.Task
	markErr   map[primitive.ObjectID]bool
}

func newFakeReminderStore() *fakeReminderStore {
	return &fakeReminderStore{
		tasks:   map[primitive.ObjectID]*models.Task{},
		markErr: map[primitive.ObjectID]bool{},
	}
}

func (f *fakeReminderStore) addTask(t *models.Task) {
	f.tasks[t.ID] = t
}

func (f *fakeReminderStore) addReminder(task primitive.ObjectID, rType models.ReminderType, at time.Time) primitive.ObjectID {
	r := models.Reminder{
		ID:      primitive.NewObjectID(),
		Task:    task,
		Time:    at,
		Type:    rType,
		Message: "heads up",
	}
	f.reminders = append(f.reminders, r)
	return r.ID
}

func (f *fakeReminderStore) DueReminders(ctx context.Context, now time.Time) ([]models.Reminder, error) {
	var due []models.Reminder
	for _, r := range f.reminders {
		if !r.Sent && !r.Time.After(now) {
			due = append(due, r)
		}
	}
	return due, nil
}

func (f *fakeReminderStore) MarkSent(ctx context.Context, id primitive.ObjectID) error {
	if f.markErr[id] {
		return errors.New("write failed")
	}
	for i := range f.reminders {
		if f.reminders[i].ID == id && !f.reminders[i].Sent {
			f.reminders[i].Sent = true
			return nil
		}
	}
	return errors.New("no unsent reminder matched")
}

func (f *fakeReminderStore) TaskByID(ctx context.Context, id primitive.ObjectID) (*models.Task, error) {
	task, ok := f.tasks[id]
	if !ok {
		return nil, errors.New("task not found")
	}
	return task, nil
}

func (f *fakeReminderStore) sentCount() int {
	count := 0
	for _, r := range f.reminders {
		if r.Sent {
			count++
		}
	}
	return count
}

type fakeMailer struct {
	sent    []string
	failing bool
}

func (f *fakeMailer) SendReminderEmail(taskTitle, message string) error {
	if f.failing {
		return errors.New("smtp unavailable")
	}
	f.sent = append(f.sent, taskTitle)
	return nil
}

func newReminderFixture(mailer *fakeMailer) (*ReminderService, *fakeReminderStore, *fakeNotificationStore) {
	store := newFakeReminderStore()
	notifStore := newFakeNotificationStore()
	hub := realtime.NewHub()
	notifications := NewNotificationService(notifStore, hub)
	return NewReminderService(store, notifications, mailer, hub), store, notifStore
}

func TestProcessDueDispatchesInApp(t *testing.T) {
	svc, store, notifStore := newReminderFixture(&fakeMailer{})

	pm := primitive.NewObjectID()
	member := primitive.NewObjectID()
	task := testTask(pm, member)
	store.addTask(task)
	now := time.Now()
	store.addReminder(task.ID, models.ReminderInApp, now.Add(-time.Minute))

	sent := svc.ProcessDue(context.Background(), now)

	assert.Equal(t, 1, sent)
	assert.Equal(t, 1, store.sentCount())
	assert.Len(t, notifStore.notifications, 2, "reminder fans out to the team and the PM")
	for _, n := range notifStore.notifications {
		assert.Equal(t, models.NotificationReminder, n.Type)
		assert.Equal(t, "Task Reminder", n.Title)
		assert.Equal(t, "heads up", n.Message)
	}
}

func TestProcessDueDispatchesEmail(t *testing.T) {
	mailer := &fakeMailer{}
	svc, store, notifStore := newReminderFixture(mailer)

	task := testTask(primitive.NewObjectID())
	store.addTask(task)
	now := time.Now()
	store.addReminder(task.ID, models.ReminderEmail, now)

	sent := svc.ProcessDue(context.Background(), now)

	assert.Equal(t, 1, sent)
	assert.Equal(t, []string{task.Title}, mailer.sent)
	assert.Empty(t, notifStore.notifications, "email reminders do not create in-app notifications")
}

func TestProcessDueSkipsFuture(t *testing.T) {
	svc, store, _ := newReminderFixture(&fakeMailer{})

	task := testTask(primitive.NewObjectID())
	store.addTask(task)
	now := time.Now()
	store.addReminder(task.ID, models.ReminderInApp, now.Add(time.Hour))

	assert.Equal(t, 0, svc.ProcessDue(context.Background(), now))
	assert.Equal(t, 0, store.sentCount())
}

func TestProcessDueSkipsMissingTask(t *testing.T) {
	svc, store, _ := newReminderFixture(&fakeMailer{})

	now := time.Now()
	store.addReminder(primitive.NewObjectID(), models.ReminderInApp, now)

	assert.Equal(t, 0, svc.ProcessDue(context.Background(), now))
	assert.Equal(t, 0, store.sentCount(), "a reminder for a deleted task must stay unsent")
}

func TestProcessDueFailureDoesNotAbortBatch(t *testing.T) {
	mailer := &fakeMailer{failing: true}
	svc, store, notifStore := newReminderFixture(mailer)

	task := testTask(primitive.NewObjectID())
	store.addTask(task)
	now := time.Now()
	emailID := store.addReminder(task.ID, models.ReminderEmail, now.Add(-2*time.Minute))
	inAppID := store.addReminder(task.ID, models.ReminderInApp, now.Add(-time.Minute))

	sent := svc.ProcessDue(context.Background(), now)

	assert.Equal(t, 1, sent, "in-app reminder still goes out after the email failure")
	assert.NotEmpty(t, notifStore.notifications)
	for _, r := range store.reminders {
		switch r.ID {
		case emailID:
			assert.False(t, r.Sent, "failed dispatch must not be marked sent")
		case inAppID:
			assert.True(t, r.Sent)
		}
	}
}

func TestProcessDueNeverDispatchesTwice(t *testing.T) {
	svc, store, notifStore := newReminderFixture(&fakeMailer{})

	task := testTask(primitive.NewObjectID())
	store.addTask(task)
	now := time.Now()
	store.addReminder(task.ID, models.ReminderInApp, now)

	assert.Equal(t, 1, svc.ProcessDue(context.Background(), now))
	assert.Equal(t, 0, svc.ProcessDue(context.Background(), now.Add(time.Minute)))
	assert.Len(t, notifStore.notifications, 1, "second tick must not re-dispatch a sent reminder")
}

func TestProcessDueRetriesWhenMarkSentFails(t *testing.T) {
	svc, store, _ := newReminderFixture(&fakeMailer{})

	task := testTask(primitive.NewObjectID())
	store.addTask(task)
	now := time.Now()
	id := store.addReminder(task.ID, models.ReminderInApp, now)
	store.markErr[id] = true

	assert.Equal(t, 0, svc.ProcessDue(context.Background(), now), "a reminder is not counted sent until the flag is persisted")

	store.markErr[id] = false
	assert.Equal(t, 1, svc.ProcessDue(context.Background(), now.Add(time.Minute)))
}
