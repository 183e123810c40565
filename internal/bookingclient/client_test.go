package bookingclient

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/hitoshi/rezerveme/internal/model"
)

// staticToken は固定トークンを返すTokenSource。
type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(serverURL string, token string) *Client {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewClient(http.DefaultClient, logger, serverURL, staticToken(token))
}

func TestListSpaces_DecodesResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/spaces" {
			t.Errorf("path = %q, want /api/spaces", r.URL.Path)
		}
		if r.Method != http.MethodGet {
			t.Errorf("method = %q, want GET", r.Method)
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"name":"Room A","capacity":10},{"id":2,"name":"Room B","capacity":4}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	spaces, err := client.ListSpaces(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(spaces) != 2 {
		t.Fatalf("len = %d, want 2", len(spaces))
	}
	if spaces[0].Name != "Room A" || spaces[0].Capacity != 10 {
		t.Errorf("spaces[0] = %+v", spaces[0])
	}
}

func TestListSpaces_Non200ReturnsFetchError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	_, err := client.ListSpaces(context.Background())
	if err == nil {
		t.Fatal("expected error")
	}

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Code != model.ErrCodeFetchFailed {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeFetchFailed)
	}
}

func TestListReservations_SendsUserEmailQuery(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.URL.Query().Get("userEmail"); got != "a@x.com" {
			t.Errorf("userEmail = %q, want %q", got, "a@x.com")
		}
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"id":1,"spaceId":2,"userEmail":"a@x.com","reservationDate":"2024-06-01"}]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	reservations, err := client.ListReservations(context.Background(), "a@x.com")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(reservations) != 1 {
		t.Fatalf("len = %d, want 1", len(reservations))
	}
	want := model.Date{Year: 2024, Month: 6, Day: 1}
	if reservations[0].ReservationDate != want {
		t.Errorf("date = %v, want %v", reservations[0].ReservationDate, want)
	}
}

func TestCreateReservation_SendsExactWireFormat(t *testing.T) {
	var gotBody string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		raw, _ := io.ReadAll(r.Body)
		gotBody = string(raw)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":7,"spaceId":1,"userEmail":"a@x.com","reservationDate":"2024-06-01"}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "token-abc")

	date := model.Date{Year: 2024, Month: 6, Day: 1}
	created, err := client.CreateReservation(context.Background(), 1, "a@x.com", date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	want := `{"spaceId":1,"userEmail":"a@x.com","reservationDate":"2024-06-01"}`
	if gotBody != want {
		t.Errorf("body = %q, want %q", gotBody, want)
	}
	if created.ID != 7 {
		t.Errorf("ID = %d, want 7", created.ID)
	}
}

func TestCreateReservation_RejectionSurfacesBodyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		w.Write([]byte("Space is at capacity for this date. Current reservations: 5, Capacity: 5"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "token-abc")

	_, err := client.CreateReservation(context.Background(), 1, "a@x.com", model.Date{Year: 2024, Month: 6, Day: 1})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Code != model.ErrCodeBookingRejected {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeBookingRejected)
	}
	want := "Space is at capacity for this date. Current reservations: 5, Capacity: 5"
	if apiErr.Message != want {
		t.Errorf("message = %q, want %q", apiErr.Message, want)
	}
}

func TestCreateReservation_ServerErrorBodySurfaced(t *testing.T) {
	// 500でもボディテキストをそのまま保持する
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte("capacity exceeds limit"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "token-abc")

	_, err := client.CreateReservation(context.Background(), 1, "a@x.com", model.Date{Year: 2024, Month: 6, Day: 1})

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Message != "capacity exceeds limit" {
		t.Errorf("message = %q, want %q", apiErr.Message, "capacity exceeds limit")
	}
}

func TestCreateSpace_SendsAuthorizationHeader(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "Bearer admin-token" {
			t.Errorf("Authorization = %q, want %q", got, "Bearer admin-token")
		}
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"id":3,"name":"Room C","capacity":6}`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "admin-token")

	space, err := client.CreateSpace(context.Background(), "Room C", 6)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if space.ID != 3 {
		t.Errorf("ID = %d, want 3", space.ID)
	}
}

func TestCreateSpace_RejectionSurfacesBodyText(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusForbidden)
		w.Write([]byte("Admin privileges required"))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "user-token")

	_, err := client.CreateSpace(context.Background(), "Room C", 6)

	var apiErr *model.APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %v, want APIError", err)
	}
	if apiErr.Code != model.ErrCodeSpaceRejected {
		t.Errorf("code = %q, want %q", apiErr.Code, model.ErrCodeSpaceRejected)
	}
	if apiErr.Message != "Admin privileges required" {
		t.Errorf("message = %q", apiErr.Message)
	}
}

func TestClient_AnonymousWhenNoToken(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if got := r.Header.Get("Authorization"); got != "" {
			t.Errorf("Authorization = %q, want empty", got)
		}
		w.Write([]byte(`[]`))
	}))
	defer server.Close()

	client := newTestClient(server.URL, "")

	if _, err := client.ListSpaces(context.Background()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
