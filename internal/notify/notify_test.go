package notify

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/http/httptest"
	"net/smtp"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/saturnino-fabrica-de-software/chamada/internal/domain"
	"github.com/saturnino-fabrica-de-software/chamada/internal/webhook"
)

type mockContacts struct {
	mock.Mock
}

func (m *mockContacts) Get(ctx context.Context, regNo string) (domain.Student, error) {
	args := m.Called(ctx, regNo)
	return args.Get(0).(domain.Student), args.Error(1)
}

type mockSender struct {
	mock.Mock
}

func (m *mockSender) Channel() string { return "mock" }

func (m *mockSender) Send(ctx context.Context, msg Message) error {
	return m.Called(ctx, msg).Error(0)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

var john = domain.Identity{Name: "John Doe", RegNo: "21A"}

func TestCompose(t *testing.T) {
	msg := Compose("p@example.com", john, domain.StatusPresent, "2024-03-01")

	assert.Equal(t, "p@example.com", msg.To)
	assert.Equal(t, "Attendance Update for 2024-03-01", msg.Subject)
	assert.Equal(t,
		"Dear Parent,\n\nYour ward John Doe (Reg No: 21A) is marked as Present today (2024-03-01).\n\nRegards,\nSchool Administration",
		msg.Body)
}

func TestDispatcher_Notify(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name      string
		setup     func(c *mockContacts, s *mockSender)
		want      domain.DeliveryOutcome
		recipient string
	}{
		{
			name: "sent",
			setup: func(c *mockContacts, s *mockSender) {
				c.On("Get", ctx, "21A").Return(domain.Student{RegNo: "21A", ParentEmail: "p@example.com"}, nil)
				s.On("Send", ctx, mock.MatchedBy(func(m Message) bool {
					return m.To == "p@example.com" && m.Status == domain.StatusPresent && m.Date == "2024-03-01"
				})).Return(nil).Once()
			},
			want:      domain.DeliverySent,
			recipient: "p@example.com",
		},
		{
			name: "student not registered",
			setup: func(c *mockContacts, s *mockSender) {
				c.On("Get", ctx, "21A").Return(domain.Student{}, domain.ErrStudentNotFound)
			},
			want: domain.DeliveryNoRecipient,
		},
		{
			name: "registered without email",
			setup: func(c *mockContacts, s *mockSender) {
				c.On("Get", ctx, "21A").Return(domain.Student{RegNo: "21A"}, nil)
			},
			want: domain.DeliveryNoRecipient,
		},
		{
			name: "lookup error",
			setup: func(c *mockContacts, s *mockSender) {
				c.On("Get", ctx, "21A").Return(domain.Student{}, domain.ErrRegistryIO)
			},
			want: domain.DeliveryFailed,
		},
		{
			name: "send error",
			setup: func(c *mockContacts, s *mockSender) {
				c.On("Get", ctx, "21A").Return(domain.Student{RegNo: "21A", ParentEmail: "p@example.com"}, nil)
				s.On("Send", ctx, mock.Anything).Return(errors.New("535 auth failed"))
			},
			want:      domain.DeliveryFailed,
			recipient: "p@example.com",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			contacts := new(mockContacts)
			sender := new(mockSender)
			tt.setup(contacts, sender)

			d := NewDispatcher(contacts, sender, discardLogger())
			got := d.Notify(ctx, john, domain.StatusPresent, "2024-03-01")

			assert.Equal(t, tt.want, got.Outcome)
			assert.Equal(t, tt.recipient, got.Recipient)
			assert.NotEmpty(t, got.Message)
			contacts.AssertExpectations(t)
			sender.AssertExpectations(t)
		})
	}
}

func TestDispatcher_Disabled(t *testing.T) {
	contacts := new(mockContacts)
	d := NewDispatcher(contacts, nil, discardLogger())

	got := d.Notify(context.Background(), john, domain.StatusPresent, "2024-03-01")
	assert.Equal(t, domain.DeliveryDisabled, got.Outcome)
	contacts.AssertNotCalled(t, "Get", mock.Anything, mock.Anything)
}

func TestSMTPSender(t *testing.T) {
	_, err := NewSMTPSender(SMTPConfig{Host: "smtp.gmail.com", Port: 587})
	assert.Error(t, err, "credentials are required")

	s, err := NewSMTPSender(SMTPConfig{Host: "smtp.gmail.com", Port: 587, Username: "school@example.com", Password: "pw"})
	require.NoError(t, err)
	s.now = func() time.Time { return time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC) }

	var (
		gotAddr string
		gotFrom string
		gotTo   []string
		gotMsg  string
	)
	s.send = func(_ context.Context, addr string, _ smtp.Auth, from string, to []string, msg []byte) error {
		gotAddr, gotFrom, gotTo, gotMsg = addr, from, to, string(msg)
		return nil
	}

	require.NoError(t, s.Send(context.Background(), Compose("p@example.com", john, domain.StatusPresent, "2024-03-01")))

	assert.Equal(t, "smtp.gmail.com:587", gotAddr)
	assert.Equal(t, "school@example.com", gotFrom)
	assert.Equal(t, []string{"p@example.com"}, gotTo)
	assert.Contains(t, gotMsg, "Subject: Attendance Update for 2024-03-01\r\n")
	assert.Contains(t, gotMsg, "To: p@example.com\r\n")
	assert.Contains(t, gotMsg, "\r\n\r\nDear Parent,\r\n")
	assert.Equal(t, "smtp", s.Channel())
}

func TestSendMail_StalledServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	// Accept and never greet.
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()
		_, _ = io.Copy(io.Discard, conn)
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 200*time.Millisecond)
	defer cancel()

	start := time.Now()
	err = sendMail(ctx, ln.Addr().String(), nil, "school@example.com", []string{"p@example.com"}, []byte("hi"))
	assert.Error(t, err)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSendMail_Delivers(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })

	received := make(chan string, 1)
	go func() {
		conn, err := ln.Accept()
		if err != nil {
			return
		}
		defer func() { _ = conn.Close() }()

		r := bufio.NewReader(conn)
		reply := func(line string) { _, _ = fmt.Fprintf(conn, "%s\r\n", line) }
		reply("220 test ready")
		var body strings.Builder
		inData := false
		for {
			line, err := r.ReadString('\n')
			if err != nil {
				return
			}
			if inData {
				if line == ".\r\n" {
					inData = false
					received <- body.String()
					reply("250 queued")
					continue
				}
				body.WriteString(line)
				continue
			}
			switch cmd := strings.ToUpper(strings.TrimSpace(line)); {
			case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
				reply("250 test")
			case cmd == "DATA":
				inData = true
				reply("354 go ahead")
			case cmd == "QUIT":
				reply("221 bye")
				return
			default:
				reply("250 ok")
			}
		}
	}()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	err = sendMail(ctx, ln.Addr().String(), nil, "school@example.com", []string{"p@example.com"}, []byte("Subject: hi\r\n\r\nhello\r\n"))
	require.NoError(t, err)

	select {
	case body := <-received:
		assert.Contains(t, body, "hello")
	case <-time.After(5 * time.Second):
		t.Fatal("message not received")
	}
}

func TestWebhookSender(t *testing.T) {
	var payload struct {
		Type string            `json:"type"`
		Data map[string]string `json:"data"`
	}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		w.WriteHeader(http.StatusAccepted)
	}))
	defer server.Close()

	sender := NewWebhookSender(webhook.NewClient(webhook.Config{URL: server.URL, Secret: "x"}))
	err := sender.Send(context.Background(), Compose("p@example.com", john, domain.StatusPresent, "2024-03-01"))
	require.NoError(t, err)

	assert.Equal(t, "attendance.notification", payload.Type)
	assert.Equal(t, "p@example.com", payload.Data["to"])
	assert.Equal(t, "21A", payload.Data["reg_no"])
	assert.True(t, strings.HasPrefix(payload.Data["body"], "Dear Parent"))
}

func TestLogSender(t *testing.T) {
	var buf strings.Builder
	s := NewLogSender(slog.New(slog.NewTextHandler(&buf, nil)))

	require.NoError(t, s.Send(context.Background(), Compose("p@example.com", john, domain.StatusPresent, "2024-03-01")))
	assert.Contains(t, buf.String(), "reg_no=21A")
	assert.Equal(t, "log", s.Channel())
}
