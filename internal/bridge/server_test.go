package bridge

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"net"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"padbridge/internal/command"
	"padbridge/internal/keys"
	"padbridge/internal/keys/keystest"
)

const waitTimeout = 2 * time.Second

// BridgeServerTestSuite runs a real listener on a loopback port with a recording actuator
type BridgeServerTestSuite struct {
	suite.Suite
	server   *TCPServer
	recorder *keystest.Recorder
	opts     ConnOptions
	done     chan error
}

func (s *BridgeServerTestSuite) SetupTest() {
	s.opts = ConnOptions{MaxMessageSize: 256}
	s.startServer()
}

func (s *BridgeServerTestSuite) startServer() {
	s.recorder = keystest.NewRecorder()
	interp := command.NewInterpreter(keys.NewKeyboard(s.recorder, nil), 5*time.Millisecond, nil)
	s.server = NewServer("127.0.0.1:0", interp, s.opts, nil)
	s.Require().NoError(s.server.Listen())

	s.done = make(chan error, 1)
	go func() { s.done <- s.server.Serve() }()
}

func (s *BridgeServerTestSuite) TearDownTest() {
	s.server.Stop()
	select {
	case err := <-s.done:
		s.NoError(err)
	case <-time.After(waitTimeout):
		s.Fail("accept loop did not exit")
	}
}

// dial connects and waits until the server has registered the connection
func (s *BridgeServerTestSuite) dial() net.Conn {
	before := s.server.ConnectionCount()
	conn, err := net.Dial("tcp", s.server.ListenAddr().String())
	s.Require().NoError(err)
	s.Require().Eventually(func() bool {
		return s.server.ConnectionCount() > before
	}, waitTimeout, 5*time.Millisecond)
	return conn
}

// closeAndDrain closes the client side and waits for its handler to finish,
// after which every line it sent has been processed
func (s *BridgeServerTestSuite) closeAndDrain(conn net.Conn) {
	conn.Close()
	s.Require().Eventually(func() bool {
		return s.server.ConnectionCount() == 0
	}, waitTimeout, 5*time.Millisecond)
}

func (s *BridgeServerTestSuite) write(conn net.Conn, data string) {
	_, err := conn.Write([]byte(data))
	s.Require().NoError(err)
}

func (s *BridgeServerTestSuite) TestTwoLinesInOneWrite() {
	conn := s.dial()
	s.write(conn, `{"type":"direction_down","direction":"up"}`+"\n"+`{"type":"direction_up","direction":"up"}`+"\n")
	s.closeAndDrain(conn)

	s.Equal([]keystest.Event{keystest.Down(keys.VKW), keystest.Up(keys.VKW)}, s.recorder.Events())
}

func (s *BridgeServerTestSuite) TestLineSplitAcrossWrites() {
	conn := s.dial()
	s.write(conn, `{"type":"direction_do`)
	time.Sleep(20 * time.Millisecond)
	s.Zero(s.recorder.Len())
	s.write(conn, `wn","direction":"right"}`+"\n")

	s.True(s.recorder.WaitFor(1, waitTimeout))
	s.Equal([]keystest.Event{keystest.Down(keys.VKD)}, s.recorder.Events())
	conn.Close()
}

func (s *BridgeServerTestSuite) TestMalformedLineKeepsConnection() {
	conn := s.dial()
	s.write(conn, "{not valid json}\n")
	s.write(conn, `{"type":"direction_down","direction":"left"}`+"\n")

	s.True(s.recorder.WaitFor(1, waitTimeout))
	s.Equal(1, s.server.ConnectionCount())
	s.Equal([]keystest.Event{keystest.Down(keys.VKA)}, s.recorder.Events())
	conn.Close()
}

func (s *BridgeServerTestSuite) TestBlankLinesAndPartialTail() {
	conn := s.dial()
	s.write(conn, "\n   \r\n"+`{"type":"ctrl_down"}`+"\r\n"+`{"type":"ctrl_up"}`)
	s.closeAndDrain(conn)

	// the unterminated ctrl_up is dropped at EOF
	s.Equal([]keystest.Event{keystest.Down(keys.VKControl)}, s.recorder.Events())
	s.True(s.server.ModifierDown())
}

func (s *BridgeServerTestSuite) TestOversizedLineDropped() {
	conn := s.dial()
	s.write(conn, `{"type":"strategem","name":"`+strings.Repeat("x", 1024)+`","sequence":["w"]}`+"\n")
	s.write(conn, `{"type":"direction_down","direction":"down"}`+"\n")
	s.closeAndDrain(conn)

	s.Equal([]keystest.Event{keystest.Down(keys.VKS)}, s.recorder.Events())
}

func (s *BridgeServerTestSuite) TestUnknownInputsIssueNoEvents() {
	conn := s.dial()
	s.write(conn, `{"type":"direction_down","direction":"north"}`+"\n")
	s.write(conn, `{"type":"launch"}`+"\n")
	s.write(conn, `{"type":"strategem","sequence":["x"]}`+"\n")
	s.write(conn, "[1,2,3]\n")
	s.closeAndDrain(conn)

	s.Zero(s.recorder.Len())
}

func (s *BridgeServerTestSuite) TestStrategemOrder() {
	conn := s.dial()
	s.write(conn, `{"type":"strategem","name":"test_orbital","sequence":["w","a","x"]}`+"\n")
	s.closeAndDrain(conn)

	s.Equal([]keystest.Event{
		keystest.Down(keys.VKW), keystest.Up(keys.VKW),
		keystest.Down(keys.VKA), keystest.Up(keys.VKA),
	}, s.recorder.Events())
}

func (s *BridgeServerTestSuite) TestConcurrentToggles() {
	const clients = 8
	const togglesPerClient = 25

	var wg sync.WaitGroup
	for i := 0; i < clients; i++ {
		conn, err := net.Dial("tcp", s.server.ListenAddr().String())
		s.Require().NoError(err)
		wg.Add(1)
		go func(conn net.Conn) {
			defer wg.Done()
			defer conn.Close()
			for j := 0; j < togglesPerClient; j++ {
				if _, err := conn.Write([]byte(`{"type":"toggle_left_ctrl"}` + "\n")); err != nil {
					return
				}
			}
		}(conn)
	}
	wg.Wait()

	total := clients * togglesPerClient
	s.Require().True(s.recorder.WaitFor(total, waitTimeout))
	events := s.recorder.Events()
	s.Len(events, total)
	for i, ev := range events {
		s.Equal(keys.VKControl, ev.Code)
		s.Equal(i%2 == 0, ev.Down, "event %d", i)
	}
	s.Equal(total%2 == 1, s.server.ModifierDown())
}

func (s *BridgeServerTestSuite) TestOneConnectionClosingDoesNotAffectOthers() {
	first := s.dial()
	second := s.dial()

	first.Close()
	s.write(second, `{"type":"direction_down","direction":"up"}`+"\n")
	s.True(s.recorder.WaitFor(1, waitTimeout))
	s.Equal(1, s.recorder.Count(keys.VKW, true))
	second.Close()
}

func (s *BridgeServerTestSuite) TestStopReleasesModifierAndClosesClients() {
	conn := s.dial()
	defer conn.Close()
	s.write(conn, `{"type":"toggle_left_ctrl"}`+"\n")
	s.write(conn, `{"type":"direction_down","direction":"up"}`+"\n")
	s.Require().True(s.recorder.WaitFor(2, waitTimeout))

	s.server.Stop()

	s.False(s.server.ModifierDown())
	s.Equal([]keystest.Event{
		keystest.Down(keys.VKControl), keystest.Down(keys.VKW),
		keystest.Up(keys.VKW), keystest.Up(keys.VKControl),
	}, s.recorder.Events())

	conn.SetReadDeadline(time.Now().Add(waitTimeout))
	_, err := bufio.NewReader(conn).ReadByte()
	s.Error(err)
	s.Zero(s.server.ConnectionCount())
}

func (s *BridgeServerTestSuite) TestRateLimitDropsExcess() {
	s.server.Stop()
	<-s.done

	s.opts = ConnOptions{RateLimit: 0.001, RateBurst: 2}
	s.startServer()

	conn := s.dial()
	for i := 0; i < 5; i++ {
		s.write(conn, `{"type":"direction_down","direction":"up"}`+"\n")
	}
	s.closeAndDrain(conn)

	s.Equal(2, s.recorder.Len())
}

func (s *BridgeServerTestSuite) TestIdleTimeoutDisconnects() {
	s.server.Stop()
	<-s.done

	s.opts = ConnOptions{IdleTimeout: 150 * time.Millisecond}
	s.startServer()

	conn := s.dial()
	defer conn.Close()
	s.Eventually(func() bool {
		return s.server.ConnectionCount() == 0
	}, waitTimeout, 5*time.Millisecond)
}

func TestBridgeServerTestSuite(t *testing.T) {
	suite.Run(t, new(BridgeServerTestSuite))
}

func TestListen_BindFailure(t *testing.T) {
	occupied, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	defer occupied.Close()

	interp := command.NewInterpreter(keys.NewKeyboard(keystest.NewRecorder(), nil), 0, nil)
	server := NewServer(occupied.Addr().String(), interp, ConnOptions{}, nil)

	err = server.Start()
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrBind))
	assert.Nil(t, server.ListenAddr())
}

func TestServe_AfterStopReturnsImmediately(t *testing.T) {
	interp := command.NewInterpreter(keys.NewKeyboard(keystest.NewRecorder(), nil), 0, nil)
	server := NewServer("127.0.0.1:0", interp, ConnOptions{}, nil)
	require.NoError(t, server.Listen())

	server.Stop()

	done := make(chan error, 1)
	go func() { done <- server.Serve() }()
	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(waitTimeout):
		t.Fatal("serve did not return after stop")
	}
}

func TestServe_ConcurrentWithStop(t *testing.T) {
	for i := 0; i < 20; i++ {
		interp := command.NewInterpreter(keys.NewKeyboard(keystest.NewRecorder(), nil), 0, nil)
		server := NewServer("127.0.0.1:0", interp, ConnOptions{}, nil)
		require.NoError(t, server.Listen())

		done := make(chan error, 1)
		go func() { done <- server.Serve() }()
		server.Stop()

		select {
		case err := <-done:
			assert.NoError(t, err)
		case <-time.After(waitTimeout):
			t.Fatal("serve did not return after stop")
		}
	}
}

func TestServe_BeforeListen(t *testing.T) {
	interp := command.NewInterpreter(keys.NewKeyboard(keystest.NewRecorder(), nil), 0, nil)
	server := NewServer("127.0.0.1:0", interp, ConnOptions{}, nil)

	assert.Error(t, server.Serve())
}

func TestReadLine(t *testing.T) {
	input := "short\n" + strings.Repeat("y", 40) + "\nnext\ntail"
	r := bufio.NewReaderSize(strings.NewReader(input), 16)

	line, err := readLine(r, 10)
	require.NoError(t, err)
	assert.Equal(t, "short\n", string(line))

	_, err = readLine(r, 10)
	assert.ErrorIs(t, err, errLineTooLong)

	line, err = readLine(r, 10)
	require.NoError(t, err)
	assert.Equal(t, "next\n", string(line))

	_, err = readLine(r, 10)
	assert.ErrorIs(t, err, io.EOF)
}

func TestReadLine_ExactlyMax(t *testing.T) {
	payload := strings.Repeat("z", 10)
	r := bufio.NewReaderSize(strings.NewReader(fmt.Sprintf("%s\n", payload)), 16)

	line, err := readLine(r, 10)
	require.NoError(t, err)
	assert.Equal(t, payload+"\n", string(line))
}
