// internal/modbus/client_test.go
package modbus

import (
	"encoding/binary"
	"io"
	"net"
	"testing"
	"time"
)

func TestUnpackBits(t *testing.T) {
	got := unpackBits([]byte{0b0000_0101, 0b0000_0001}, 10)
	want := []bool{true, false, true, false, false, false, false, false, true, false}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("bit %d: got=%v want=%v", i, got[i], want[i])
		}
	}
}

func TestUnpackRegisters(t *testing.T) {
	regs, err := unpackRegisters([]byte{0x01, 0x02, 0xFF, 0xFE}, 2)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if regs[0] != 0x0102 || regs[1] != 0xFFFE {
		t.Fatalf("unexpected registers: %v", regs)
	}

	if _, err := unpackRegisters([]byte{0x01}, 1); err == nil {
		t.Fatalf("expected odd length error")
	}
	if _, err := unpackRegisters([]byte{0x01, 0x02}, 2); err == nil {
		t.Fatalf("expected short payload error")
	}
}

// fakeSlave answers Modbus TCP requests from a fixed register bank.
// FC 3 returns regs; FC 5/6 echo the request and are recorded.
type fakeSlave struct {
	ln     net.Listener
	regs   []uint16
	writes chan []byte
}

func startFakeSlave(t *testing.T, regs []uint16) *fakeSlave {
	t.Helper()
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		t.Fatalf("listen: %v", err)
	}
	s := &fakeSlave{ln: ln, regs: regs, writes: make(chan []byte, 8)}
	go s.serve()
	t.Cleanup(func() { _ = ln.Close() })
	return s
}

func (s *fakeSlave) serve() {
	conn, err := s.ln.Accept()
	if err != nil {
		return
	}
	defer conn.Close()

	for {
		hdr := make([]byte, 7)
		if _, err := io.ReadFull(conn, hdr); err != nil {
			return
		}
		length := binary.BigEndian.Uint16(hdr[4:6])
		pdu := make([]byte, int(length)-1)
		if _, err := io.ReadFull(conn, pdu); err != nil {
			return
		}

		var resp []byte
		switch pdu[0] {
		case 3:
			addr := binary.BigEndian.Uint16(pdu[1:3])
			qty := binary.BigEndian.Uint16(pdu[3:5])
			resp = []byte{3, byte(qty * 2)}
			for i := uint16(0); i < qty; i++ {
				var b [2]byte
				binary.BigEndian.PutUint16(b[:], s.regs[addr+i])
				resp = append(resp, b[:]...)
			}
		case 5, 6:
			resp = append([]byte(nil), pdu...)
			s.writes <- append([]byte{hdr[6]}, pdu...)
		default:
			resp = []byte{pdu[0] | 0x80, 1}
		}

		out := make([]byte, 7, 7+len(resp))
		copy(out, hdr)
		binary.BigEndian.PutUint16(out[4:6], uint16(len(resp)+1))
		out = append(out, resp...)
		if _, err := conn.Write(out); err != nil {
			return
		}
	}
}

func TestClient_ReadAndWriteOverTCP(t *testing.T) {
	slave := startFakeSlave(t, []uint16{10, 20, 30, 40})

	c, err := NewTCP(TCPConfig{Endpoint: slave.ln.Addr().String(), Timeout: 2 * time.Second})
	if err != nil {
		t.Fatalf("NewTCP: %v", err)
	}
	defer c.Close()

	u := c.Unit(7)

	regs, err := u.ReadHoldingRegisters(1, 2)
	if err != nil {
		t.Fatalf("ReadHoldingRegisters: %v", err)
	}
	if len(regs) != 2 || regs[0] != 20 || regs[1] != 30 {
		t.Fatalf("unexpected registers: %v", regs)
	}

	if err := u.WriteCoil(3, true); err != nil {
		t.Fatalf("WriteCoil: %v", err)
	}
	w := <-slave.writes
	if w[0] != 7 || w[1] != 5 || binary.BigEndian.Uint16(w[2:4]) != 3 || binary.BigEndian.Uint16(w[4:6]) != 0xFF00 {
		t.Fatalf("unexpected coil write frame: %v", w)
	}

	if err := u.WriteRegister(10, 500); err != nil {
		t.Fatalf("WriteRegister: %v", err)
	}
	w = <-slave.writes
	if w[1] != 6 || binary.BigEndian.Uint16(w[2:4]) != 10 || binary.BigEndian.Uint16(w[4:6]) != 500 {
		t.Fatalf("unexpected register write frame: %v", w)
	}
}

func TestNewTCP_RequiresEndpoint(t *testing.T) {
	if _, err := NewTCP(TCPConfig{}); err == nil {
		t.Fatalf("expected error, got nil")
	}
}

func TestNewRTU_RequiresPort(t *testing.T) {
	if _, err := NewRTU(RTUConfig{}); err == nil {
		t.Fatalf("expected error, got nil")
	}
}
