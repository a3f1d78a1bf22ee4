package services

import (
	"context"
	"errors"
	"testing"

	"taskhive/backend/models"
	"taskhive/backend/realtime"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// fakeNotificationStore is an in-memory NotificationStore with per-recipient
// error injection.
type fakeNotificationStore struct {
	notifications []models.Notification
	failFor       map[primitive.ObjectID]bool
}

func newFakeNotificationStore() *fakeNotificationStore {
	return &fakeNotificationStore{failFor: map[primitive.ObjectID]bool{}}
}

func (f *fakeNotificationStore) Insert(ctx context.Context, n *models.Notification) error {
	if f.failFor[n.Recipient] {
		return errors.New("insert failed")
	}
	if n.ID.IsZero() {
		n.ID = primitive.NewObjectID()
	}
	f.notifications = append(f.notifications, *n)
	return nil
}

func (f *fakeNotificationStore) CountUnread(ctx context.Context, recipient primitive.ObjectID) (int64, error) {
	var count int64
	for _, n := range f.notifications {
		if n.Recipient == recipient && !n.IsRead {
			count++
		}
	}
	return count, nil
}

func (f *fakeNotificationStore) ListForRecipient(ctx context.Context, recipient primitive.ObjectID) ([]models.Notification, error) {
	var out []models.Notification
	for _, n := range f.notifications {
		if n.Recipient == recipient {
			out = append(out, n)
		}
	}
	return out, nil
}

func (f *fakeNotificationStore) MarkRead(ctx context.Context, recipient, id primitive.ObjectID) error {
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].Recipient == recipient {
			f.notifications[i].IsRead = true
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func (f *fakeNotificationStore) Delete(ctx context.Context, recipient, id primitive.ObjectID) error {
	for i := range f.notifications {
		if f.notifications[i].ID == id && f.notifications[i].Recipient == recipient {
			f.notifications = append(f.notifications[:i], f.notifications[i+1:]...)
			return nil
		}
	}
	return mongo.ErrNoDocuments
}

func testTask(pm primitive.ObjectID, team ...primitive.ObjectID) *models.Task {
	return &models.Task{
		ID:             primitive.NewObjectID(),
		Title:          "Ship the release",
		ProjectManager: pm,
		Team:           models.TeamWithManager(team, pm),
		Stage:          models.StageInProgress,
		Priority:       models.PriorityHigh,
	}
}

func TestFanOutCreatesOneNotificationPerRecipient(t *testing.T) {
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, realtime.NewHub())

	pm := primitive.NewObjectID()
	a := primitive.NewObjectID()
	b := primitive.NewObjectID()
	task := testTask(pm, a, b)

	svc.FanOutForTask(context.Background(), task, pm, models.NotificationTaskAssigned,
		"New Task Assigned", "You have been assigned to task: Ship the release")

	assert.Len(t, store.notifications, 3, "one notification per team member plus the PM")

	recipients := map[primitive.ObjectID]bool{}
	for _, n := range store.notifications {
		recipients[n.Recipient] = true
		assert.Equal(t, task.ID, n.Task)
		assert.Equal(t, models.PriorityHigh, n.Metadata.Priority)
		assert.Equal(t, models.StageInProgress, n.Metadata.Stage)
		assert.False(t, n.IsRead)
	}
	assert.True(t, recipients[pm] && recipients[a] && recipients[b])
}

func TestFanOutDeduplicatesRecipients(t *testing.T) {
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, realtime.NewHub())

	pm := primitive.NewObjectID()
	a := primitive.NewObjectID()
	// PM already on the team, member listed twice.
	task := testTask(pm, a, a, pm)

	svc.FanOutForTask(context.Background(), task, pm, models.NotificationTaskAssigned, "t", "m")

	assert.Len(t, store.notifications, 2)
}

func TestFanOutIsolatesRecipientFailures(t *testing.T) {
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, realtime.NewHub())

	pm := primitive.NewObjectID()
	bad := primitive.NewObjectID()
	good := primitive.NewObjectID()
	store.failFor[bad] = true

	task := testTask(pm, bad, good)
	svc.FanOutForTask(context.Background(), task, pm, models.NotificationTaskAssigned, "t", "m")

	assert.Len(t, store.notifications, 2, "failure for one recipient must not block the others")
	for _, n := range store.notifications {
		assert.NotEqual(t, bad, n.Recipient)
	}
}

func TestMarkReadAndUnreadCount(t *testing.T) {
	store := newFakeNotificationStore()
	svc := NewNotificationService(store, realtime.NewHub())

	pm := primitive.NewObjectID()
	task := testTask(pm)
	svc.FanOutForTask(context.Background(), task, pm, models.NotificationReminder, "Task Reminder", "due soon")

	count, err := svc.UnreadCount(context.Background(), pm.Hex())
	assert.NoError(t, err)
	assert.Equal(t, int64(1), count)

	err = svc.MarkRead(context.Background(), pm.Hex(), store.notifications[0].ID.Hex())
	assert.NoError(t, err)

	count, err = svc.UnreadCount(context.Background(), pm.Hex())
	assert.NoError(t, err)
	assert.Equal(t, int64(0), count)
}

func TestMarkReadUnknownNotification(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore(), realtime.NewHub())

	err := svc.MarkRead(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestDeleteUnknownNotification(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore(), realtime.NewHub())

	err := svc.Delete(context.Background(), primitive.NewObjectID().Hex(), primitive.NewObjectID().Hex())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestNotificationInvalidIDs(t *testing.T) {
	svc := NewNotificationService(newFakeNotificationStore(), realtime.NewHub())

	_, err := svc.ListForUser(context.Background(), "not-a-hex-id")
	assert.ErrorIs(t, err, ErrValidation)

	err = svc.MarkRead(context.Background(), primitive.NewObjectID().Hex(), "bad")
	assert.ErrorIs(t, err, ErrValidation)
}
