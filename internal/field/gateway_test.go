// internal/field/gateway_test.go
package field

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/require"

	"github.com/tamzrod/modbus-bridge/internal/clock"
	cfg "github.com/tamzrod/modbus-bridge/internal/config"
)

type fakeConn struct {
	regs    []uint16
	readErr error
	writes  []string
}

func (f *fakeConn) ReadCoils(addr, qty uint16) ([]bool, error) {
	return make([]bool, qty), f.readErr
}

func (f *fakeConn) ReadDiscreteInputs(addr, qty uint16) ([]bool, error) {
	return make([]bool, qty), f.readErr
}

func (f *fakeConn) ReadHoldingRegisters(addr, qty uint16) ([]uint16, error) {
	if f.readErr != nil {
		return nil, f.readErr
	}
	return f.regs[addr : addr+qty], nil
}

func (f *fakeConn) ReadInputRegisters(addr, qty uint16) ([]uint16, error) {
	return make([]uint16, qty), f.readErr
}

func (f *fakeConn) WriteCoil(addr uint16, on bool) error {
	f.writes = append(f.writes, "coil")
	return nil
}

func (f *fakeConn) WriteRegister(addr, value uint16) error {
	f.writes = append(f.writes, "register")
	return nil
}

type fakeConnector struct {
	conns      map[string]*fakeConn
	connectErr error
	closed     int
}

func (f *fakeConnector) Connect(d cfg.DeviceConfig) (DeviceConn, error) {
	if f.connectErr != nil {
		return nil, f.connectErr
	}
	return f.conns[d.Name], nil
}

func (f *fakeConnector) Close() error {
	f.closed++
	return nil
}

type published struct {
	topic   string
	payload []byte
}

type fakePublisher struct {
	msgs []published
	err  error
}

func (f *fakePublisher) Publish(topic string, payload []byte) error {
	f.msgs = append(f.msgs, published{topic, payload})
	return f.err
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func testDevices() []cfg.DeviceConfig {
	return []cfg.DeviceConfig{
		{
			Name:     "boiler",
			Endpoint: "127.0.0.1:502",
			UnitID:   1,
			Polls: []cfg.PollConfig{{
				ObjectType: cfg.ObjectHoldingRegister,
				Start:      0,
				Size:       2,
				Refs: []cfg.RefConfig{
					{Name: "temp", Address: 0, Type: cfg.TypeUint16, Scale: 1, WordOrder: cfg.WordOrderBig},
					{Name: "setpoint", Address: 1, Type: cfg.TypeUint16, Scale: 1, WordOrder: cfg.WordOrderBig},
				},
			}},
		},
	}
}

func newTestGateway(t *testing.T, opts Options, conn *fakeConn, pub Publisher) (*Gateway, *fakeConnector, *clockwork.FakeClock) {
	t.Helper()
	fc := clockwork.NewFakeClockAt(time.Unix(1700000000, 0))
	connector := &fakeConnector{conns: map[string]*fakeConn{"boiler": conn}}
	g := New(testDevices(), opts, connector, pub, clock.New(fc), quietLogger(), nil)
	require.NoError(t, g.Setup(nil))
	return g, connector, fc
}

func TestGateway_PublishDeviceTopic(t *testing.T) {
	pub := &fakePublisher{}
	g, _, _ := newTestGateway(t, Options{TopicPrefix: "modpoll/"}, &fakeConn{regs: []uint16{215, 300}}, pub)

	g.Poll()
	ts := 1700000000.5
	g.Publish(&ts)

	require.Len(t, pub.msgs, 1)
	require.Equal(t, "modpoll/boiler/data", pub.msgs[0].topic)

	var body map[string]any
	require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &body))
	require.EqualValues(t, 215, body["temp"])
	require.EqualValues(t, 300, body["setpoint"])
	require.EqualValues(t, 1700000000500, body["timestamp_ms"])
}

func TestGateway_PublishSingleTopic(t *testing.T) {
	pub := &fakePublisher{}
	g, _, _ := newTestGateway(t, Options{TopicPrefix: "p/", SingleTopic: true}, &fakeConn{regs: []uint16{1, 2}}, pub)

	g.Poll()
	g.Publish(nil)

	require.Len(t, pub.msgs, 2)
	require.Equal(t, "p/boiler/temp", pub.msgs[0].topic)
	require.Equal(t, "p/boiler/setpoint", pub.msgs[1].topic)
}

func TestGateway_FailedPollIsNotPublished(t *testing.T) {
	pub := &fakePublisher{}
	g, _, _ := newTestGateway(t, Options{}, &fakeConn{readErr: errors.New("timeout")}, pub)

	g.Poll()
	g.Publish(nil)

	require.Empty(t, pub.msgs)
	require.Len(t, g.LastResults(), 1)
	require.Error(t, g.LastResults()[0].Err)
}

func TestGateway_PublishFailureDoesNotStopLoop(t *testing.T) {
	pub := &fakePublisher{err: errors.New("broker gone")}
	g, _, _ := newTestGateway(t, Options{}, &fakeConn{regs: []uint16{1, 2}}, pub)

	g.Poll()
	require.NotPanics(t, func() { g.Publish(nil) })
	require.Len(t, pub.msgs, 1)
}

func TestGateway_Diagnostics(t *testing.T) {
	pub := &fakePublisher{}
	g, _, fc := newTestGateway(t, Options{TopicPrefix: "modpoll/"}, &fakeConn{readErr: errors.New("timeout")}, pub)

	g.Poll()
	fc.Advance(10 * time.Second)
	g.PublishDiagnostics()

	require.Len(t, pub.msgs, 1)
	require.Equal(t, "modpoll/boiler/diagnostics", pub.msgs[0].topic)
	require.Contains(t, string(pub.msgs[0].payload), `"polls_failed":1`)
}

func TestGateway_DiagnosticsWithoutBus(t *testing.T) {
	g, _, _ := newTestGateway(t, Options{}, &fakeConn{regs: []uint16{1, 2}}, nil)
	g.Poll()
	require.NotPanics(t, g.PublishDiagnostics)
}

func TestGateway_Writes(t *testing.T) {
	conn := &fakeConn{regs: []uint16{0, 0}}
	g, _, _ := newTestGateway(t, Options{}, conn, nil)

	require.True(t, g.WriteCoil("boiler", 3, 1))
	require.True(t, g.WriteRegister("boiler", 10, 500))
	require.False(t, g.WriteRegister("pump", 10, 500))
	require.Equal(t, []string{"coil", "register"}, conn.writes)
}

func TestGateway_ExportCSV(t *testing.T) {
	g, _, _ := newTestGateway(t, Options{}, &fakeConn{regs: []uint16{7, 8}}, nil)
	path := filepath.Join(t.TempDir(), "out.csv")

	g.Poll()
	g.Export(path, nil)
	g.Poll()
	g.Export(path, nil)
	require.NoError(t, g.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(string(data)), "\n")
	require.Len(t, lines, 5)
}

func TestGateway_SetupFailure(t *testing.T) {
	connector := &fakeConnector{connectErr: errors.New("refused")}
	g := New(testDevices(), Options{}, connector, nil, clock.Clock{}, quietLogger(), nil)

	require.Error(t, g.Setup(nil))
	require.NoError(t, g.Close())
	require.NoError(t, g.Close())
	require.Equal(t, 1, connector.closed)
}

func TestGateway_PublishNonFiniteFloatAsNull(t *testing.T) {
	devices := []cfg.DeviceConfig{{
		Name:     "meter",
		Endpoint: "127.0.0.1:502",
		UnitID:   1,
		Polls: []cfg.PollConfig{{
			ObjectType: cfg.ObjectHoldingRegister,
			Start:      0,
			Size:       3,
			Refs: []cfg.RefConfig{
				{Name: "count", Address: 0, Type: cfg.TypeUint16, Scale: 1, WordOrder: cfg.WordOrderBig},
				{Name: "power", Address: 1, Type: cfg.TypeFloat32, Scale: 1, WordOrder: cfg.WordOrderBig},
			},
		}},
	}}
	conn := &fakeConn{regs: []uint16{215, 0x7FC0, 0x0000}}

	for _, single := range []bool{false, true} {
		pub := &fakePublisher{}
		connector := &fakeConnector{conns: map[string]*fakeConn{"meter": conn}}
		g := New(devices, Options{TopicPrefix: "modpoll/", SingleTopic: single}, connector, pub, clock.Clock{}, quietLogger(), nil)
		require.NoError(t, g.Setup(nil))

		g.Poll()
		require.NoError(t, g.LastResults()[0].Err)
		g.Publish(nil)

		if !single {
			require.Len(t, pub.msgs, 1)
			var body map[string]any
			require.NoError(t, json.Unmarshal(pub.msgs[0].payload, &body))
			require.EqualValues(t, 215, body["count"])
			require.Contains(t, body, "power")
			require.Nil(t, body["power"])
			continue
		}

		require.Len(t, pub.msgs, 2)
		require.Equal(t, "modpoll/meter/power", pub.msgs[1].topic)
		require.Contains(t, string(pub.msgs[1].payload), `"value":null`)
	}
}
