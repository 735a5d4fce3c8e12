package mailer

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"net"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/dmitrijs2005/taskflow/internal/logging"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockSMTP accepts one connection, speaks just enough SMTP for mailyak
// without STARTTLS, and hands the DATA payload to a channel.
type mockSMTP struct {
	listener net.Listener
	data     chan string
}

func newMockSMTP(t *testing.T) *mockSMTP {
	t.Helper()
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	s := &mockSMTP{listener: l, data: make(chan string, 1)}
	t.Cleanup(func() { _ = l.Close() })
	go s.serve()
	return s
}

func (s *mockSMTP) hostPort(t *testing.T) (string, int) {
	host, p, err := net.SplitHostPort(s.listener.Addr().String())
	require.NoError(t, err)
	port, err := strconv.Atoi(p)
	require.NoError(t, err)
	return host, port
}

func (s *mockSMTP) serve() {
	conn, err := s.listener.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	r := bufio.NewReader(conn)
	fmt.Fprint(conn, "220 mock ESMTP\r\n")
	for {
		line, err := r.ReadString('\n')
		if err != nil {
			return
		}
		cmd := strings.ToUpper(strings.TrimSpace(line))
		switch {
		case strings.HasPrefix(cmd, "EHLO"), strings.HasPrefix(cmd, "HELO"):
			fmt.Fprint(conn, "250-mock\r\n250 AUTH PLAIN\r\n")
		case strings.HasPrefix(cmd, "AUTH"):
			fmt.Fprint(conn, "235 ok\r\n")
		case strings.HasPrefix(cmd, "MAIL FROM:"), strings.HasPrefix(cmd, "RCPT TO:"), strings.HasPrefix(cmd, "RSET"), strings.HasPrefix(cmd, "NOOP"):
			fmt.Fprint(conn, "250 OK\r\n")
		case strings.HasPrefix(cmd, "DATA"):
			fmt.Fprint(conn, "354 go ahead\r\n")
			var b strings.Builder
			for {
				l, err := r.ReadString('\n')
				if err != nil {
					return
				}
				if l == ".\r\n" {
					break
				}
				b.WriteString(l)
			}
			s.data <- b.String()
			fmt.Fprint(conn, "250 queued\r\n")
		case strings.HasPrefix(cmd, "QUIT"):
			fmt.Fprint(conn, "221 bye\r\n")
			return
		default:
			fmt.Fprint(conn, "502 not implemented\r\n")
		}
	}
}

func TestSMTPSender_Send(t *testing.T) {
	srv := newMockSMTP(t)
	host, port := srv.hostPort(t)
	s := NewSMTPSender(host, port, "", "", "no-reply@taskflow.local")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	require.NoError(t, s.Send(ctx, "a@example.com", "Verify your email", "Your verification code is 123456."))

	select {
	case data := <-srv.data:
		assert.Contains(t, data, "To: a@example.com")
		assert.Contains(t, data, "Subject: Verify your email")
		assert.Contains(t, data, "123456")
	case <-time.After(5 * time.Second):
		t.Fatal("no message received")
	}
}

func TestSMTPSender_Send_Unreachable(t *testing.T) {
	l, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := l.Addr().(*net.TCPAddr)
	_ = l.Close()

	s := NewSMTPSender("127.0.0.1", addr.Port, "", "", "no-reply@taskflow.local")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	assert.Error(t, s.Send(ctx, "a@example.com", "s", "b"))
}

type fakeSES struct {
	in  *sesv2.SendEmailInput
	err error
}

func (f *fakeSES) SendEmail(_ context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	f.in = in
	if f.err != nil {
		return nil, f.err
	}
	return &sesv2.SendEmailOutput{MessageId: aws.String("m-1")}, nil
}

func TestSESSender_Send(t *testing.T) {
	client := &fakeSES{}
	s := NewSESSender(client, "no-reply@taskflow.local")

	require.NoError(t, s.Send(context.Background(), "a@example.com", "subj", "body"))
	assert.Equal(t, "no-reply@taskflow.local", aws.ToString(client.in.FromEmailAddress))
	assert.Equal(t, []string{"a@example.com"}, client.in.Destination.ToAddresses)
	assert.Equal(t, "subj", aws.ToString(client.in.Content.Simple.Subject.Data))
	assert.Equal(t, "body", aws.ToString(client.in.Content.Simple.Body.Text.Data))

	client.err = errors.New("throttled")
	assert.Error(t, s.Send(context.Background(), "a@example.com", "subj", "body"))
}

func TestLogSender_Send(t *testing.T) {
	assert.NoError(t, NewLogSender(logging.Nop{}).Send(context.Background(), "a@example.com", "s", "b"))
}
