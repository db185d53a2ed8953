package api

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/taskboard/internal/model"
)

const sampleTask = `{
	"id": "5f0c",
	"title": "Integrate API",
	"description": "Connect the frontend",
	"status": "DONE",
	"priority": "HIGH",
	"dueDate": "2026-03-01T18:00:00",
	"important": true,
	"reminderEnabled": false,
	"overdue": true,
	"progress": 50.0,
	"createdAt": "2026-02-01T09:30:00.123456",
	"completedAt": "2026-02-20T10:00:00",
	"subtasks": [{"id": "s1", "title": "model", "completed": true}, {"title": "wire", "completed": false}],
	"activities": [{"id": "a1", "message": "Status changed", "timestamp": "2026-02-20T10:00:00"}]
}`

func newTestServer(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/", WithToken("secret"), WithPageSize(2))
}

func TestGetDecodesServiceTask(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodGet, r.Method)
		assert.Equal(t, "/tasks/5f0c", r.URL.Path)
		assert.Equal(t, "Bearer secret", r.Header.Get("Authorization"))
		assert.NotEmpty(t, r.Header.Get("X-Request-ID"))
		io.WriteString(w, sampleTask)
	})

	task, err := c.Get(context.Background(), "5f0c")
	require.NoError(t, err)

	assert.Equal(t, "Integrate API", task.Title)
	assert.Equal(t, model.StatusDone, task.Status)
	assert.Equal(t, model.PriorityHigh, task.Priority)
	assert.Equal(t, time.Date(2026, 3, 1, 18, 0, 0, 0, time.Local), task.DueDate)
	assert.True(t, task.Overdue)
	assert.InDelta(t, 50.0, task.Progress, 0.001)
	require.NotNil(t, task.CompletedAt)
	assert.Equal(t, 20, task.CompletedAt.Day())
	assert.Equal(t, 2, len(task.Subtasks))
	assert.Equal(t, 1, task.CompletedSubtasks())
	require.Len(t, task.Activities, 1)
	assert.Equal(t, "Status changed", task.Activities[0].Message)
	assert.Nil(t, task.ReminderTime)
}

func TestListSendsQueryAndListAllWalksPages(t *testing.T) {
	var pages []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("size"))
		pages = append(pages, q.Get("page"))
		switch q.Get("page") {
		case "0":
			io.WriteString(w, `{"content":[{"id":"1","title":"a","status":"TODO","priority":"LOW"},{"id":"2","title":"b","status":"DOING","priority":"LOW"}],"totalPages":2,"totalElements":3,"size":2,"number":0}`)
		default:
			io.WriteString(w, `{"content":[{"id":"3","title":"c","status":"DONE","priority":"LOW"}],"totalPages":2,"totalElements":3,"size":2,"number":1}`)
		}
	})

	all, err := c.ListAll(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"0", "1"}, pages)
	require.Len(t, all, 3)
	assert.Equal(t, model.StatusDone, all[2].Status)
}

func TestListStatusFilter(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "DOING", r.URL.Query().Get("status"))
		io.WriteString(w, `{"content":[],"totalPages":0,"totalElements":0,"size":2,"number":0}`)
	})

	s := model.StatusDoing
	page, err := c.List(context.Background(), &s, 0, 2)
	require.NoError(t, err)
	assert.False(t, page.HasNext())
	assert.Empty(t, page.Tasks)
}

func TestUpdateSendsOnlyPatchedFields(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"status": "DOING"}, body)

		io.WriteString(w, `{"id":"1","title":"a","status":"DOING","priority":"LOW","overdue":true}`)
	})

	task, err := c.Update(context.Background(), "1", model.StatusPatch(model.StatusDoing))
	require.NoError(t, err)
	assert.Equal(t, model.StatusDoing, task.Status)
	assert.True(t, task.Overdue)
}

func TestUpdateDisablingReminderClearsTime(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, map[string]interface{}{"reminderEnabled": false, "reminderTime": nil}, body)
		assert.Contains(t, body, "reminderTime")

		io.WriteString(w, `{"id":"1","title":"a","status":"TODO","priority":"LOW","reminderEnabled":false}`)
	})

	off := false
	task, err := c.Update(context.Background(), "1", model.TaskPatch{ReminderEnabled: &off})
	require.NoError(t, err)
	assert.Nil(t, task.ReminderTime)
}

func TestUpdateSendsReminderTime(t *testing.T) {
	rt := time.Date(2026, 4, 10, 9, 0, 0, 0, time.Local)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "2026-04-10T09:00:00", body["reminderTime"])

		io.WriteString(w, `{"id":"1","title":"a","status":"TODO","priority":"LOW","reminderEnabled":true,"reminderTime":"2026-04-10T09:00:00"}`)
	})

	on := true
	_, err := c.Update(context.Background(), "1", model.TaskPatch{ReminderEnabled: &on, ReminderTime: &rt})
	require.NoError(t, err)
}

func TestCreateOmitsServerFields(t *testing.T) {
	due := time.Date(2026, 4, 10, 23, 59, 59, 0, time.Local)
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		var body map[string]interface{}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.NotContains(t, body, "id")
		assert.NotContains(t, body, "createdAt")
		assert.Equal(t, "2026-04-10T23:59:59", body["dueDate"])
		assert.Equal(t, "MEDIUM", body["priority"])

		w.WriteHeader(http.StatusCreated)
		io.WriteString(w, `{"id":"new","title":"plan","status":"TODO","priority":"MEDIUM","dueDate":"2026-04-10T23:59:59","createdAt":"2026-04-01T08:00:00"}`)
	})

	task, err := c.Create(context.Background(), model.Task{
		Title:    "plan",
		Priority: model.PriorityMedium,
		DueDate:  due,
	})
	require.NoError(t, err)
	assert.Equal(t, "new", task.ID)
	assert.Equal(t, due, task.DueDate)
	assert.False(t, task.CreatedAt.IsZero())
}

func TestHistoryEndpoints(t *testing.T) {
	var calls []string
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		calls = append(calls, r.Method+" "+r.URL.Path)
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/tasks/history":
			io.WriteString(w, `[{"id":"5","title":"old","status":"DONE","priority":"LOW","completedAt":"2026-01-01T10:00:00"}]`)
		case r.Method == http.MethodPost && r.URL.Path == "/tasks/5/restore":
			io.WriteString(w, `{"id":"5","title":"old","status":"DONE","priority":"LOW"}`)
		default:
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	hist, err := c.History(ctx)
	require.NoError(t, err)
	require.Len(t, hist, 1)
	assert.NotNil(t, hist[0].CompletedAt)

	restored, err := c.Restore(ctx, "5")
	require.NoError(t, err)
	assert.Equal(t, "5", restored.ID)

	require.NoError(t, c.Delete(ctx, "6"))
	require.NoError(t, c.HardDelete(ctx, "6"))
	require.NoError(t, c.ClearHistory(ctx))
	require.NoError(t, c.RestoreAll(ctx))

	assert.Equal(t, []string{
		"GET /tasks/history",
		"POST /tasks/5/restore",
		"DELETE /tasks/6",
		"DELETE /tasks/6/hard",
		"DELETE /tasks/history",
		"POST /tasks/history/restore",
	}, calls)
}

func TestErrorMapping(t *testing.T) {
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/tasks/missing":
			w.WriteHeader(http.StatusNotFound)
			io.WriteString(w, `{"message":"Task not found"}`)
		case "/tasks/locked":
			w.WriteHeader(http.StatusUnauthorized)
		default:
			w.WriteHeader(http.StatusBadRequest)
			io.WriteString(w, `{"errors":{"title":"Title is required","dueDate":"Due date is required"}}`)
		}
	})
	ctx := context.Background()

	_, err := c.Get(ctx, "missing")
	require.Error(t, err)
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "Task not found")

	_, err = c.Get(ctx, "locked")
	assert.True(t, IsAuthError(err))
	assert.False(t, IsNotFound(err))

	_, err = c.Create(ctx, model.Task{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "dueDate: Due date is required; title: Title is required")
}

func TestNoRetryOnServerError(t *testing.T) {
	hits := 0
	c := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	err := c.Delete(context.Background(), "1")
	require.Error(t, err)
	assert.Equal(t, 1, hits)
}

func TestParseTimestampDateOnly(t *testing.T) {
	got, err := parseTimestamp("2026-07-04")
	require.NoError(t, err)
	assert.True(t, model.IsDateOnly(got))

	got, err = parseTimestamp("2026-07-04T10:00:00Z")
	require.NoError(t, err)
	assert.Equal(t, time.UTC, got.Location())

	_, err = parseTimestamp("July 4th")
	assert.Error(t, err)
}

func TestCheckConnectionReportsTotal(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "1", r.URL.Query().Get("size"))
		if r.Header.Get("Authorization") != "Bearer good" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		io.WriteString(w, `{"content":[],"totalPages":7,"totalElements":7,"size":1,"number":0}`)
	}))
	t.Cleanup(srv.Close)

	n, err := CheckConnection(context.Background(), srv.URL, "good")
	require.NoError(t, err)
	assert.Equal(t, 7, n)

	_, err = CheckConnection(context.Background(), srv.URL, "bad")
	assert.True(t, IsAuthError(err))
}
