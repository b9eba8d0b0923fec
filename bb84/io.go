package bb84

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"io"

	"github.com/alan-christopher/quantumcryptosim/bb84/bitarray"
	"google.golang.org/protobuf/encoding/protowire"
)

// A publicChannel reads and writes authenticated messages on the classical
// channel. The structure of a frame is trivial:  payload-length | payload | mac
//
// MACs are computed by applying a secret Toeplitz matrix to create a hash, then
// applying a one-time pad to the hash to allow for unconditional security. See
// also, https://arxiv.org/abs/1603.08387.
type publicChannel struct {
	rw     io.ReadWriter
	secret io.Reader
	t      toeplitz
}

// newPublicChannel consumes the Toeplitz diagonals from secret. Both ends of a
// channel must be built from identical secrets and must then exchange messages
// in lockstep, as every message spends a fresh one-time pad.
func newPublicChannel(rw io.ReadWriter, secret io.Reader, macBits, maxPayload int) (*publicChannel, error) {
	if macBits <= 0 || macBits%8 != 0 {
		return nil, fmt.Errorf("mac length must be a positive multiple of 8 bits, got %d", macBits)
	}
	diags := make([]byte, bitarray.BytesFor(macBits+8*maxPayload-1))
	if _, err := io.ReadFull(secret, diags); err != nil {
		return nil, fmt.Errorf("reading toeplitz diagonals: %w", err)
	}
	return &publicChannel{
		rw:     rw,
		secret: secret,
		t: toeplitz{
			diags: bitarray.NewDense(diags, -1),
			m:     macBits,
		},
	}, nil
}

func (p *publicChannel) Write(m message, s *Stats) error {
	payload := m.marshal()
	if err := binary.Write(p.rw, binary.LittleEndian, int32(len(payload))); err != nil {
		return err
	}
	if _, err := p.rw.Write(payload); err != nil {
		return err
	}
	mac, err := p.buildMAC(payload)
	if err != nil {
		return err
	}
	if _, err := p.rw.Write(mac); err != nil {
		return err
	}
	if s != nil {
		s.MessagesSent++
		s.BytesSent += 4 + len(payload) + len(mac)
	}
	return nil
}

func (p *publicChannel) Read(m message, s *Stats) error {
	var mLen int32
	if err := binary.Read(p.rw, binary.LittleEndian, &mLen); err != nil {
		return err
	}
	if mLen < 0 {
		return fmt.Errorf("negative frame length %d", mLen)
	}
	payload := make([]byte, mLen)
	if _, err := io.ReadFull(p.rw, payload); err != nil {
		return err
	}
	mac := make([]byte, p.t.m/8)
	if _, err := io.ReadFull(p.rw, mac); err != nil {
		return err
	}
	emac, err := p.buildMAC(payload)
	if err != nil {
		return err
	}
	if !bytes.Equal(mac, emac) {
		return fmt.Errorf("%w: got %x, expected %x", ErrInvalidMAC, mac, emac)
	}
	return m.unmarshal(payload)
}

func (p *publicChannel) buildMAC(msg []byte) ([]byte, error) {
	p.t.n = len(msg) * 8
	hash, err := p.t.Mul(bitarray.NewDense(msg, -1))
	if err != nil {
		return nil, err
	}
	otp := make([]byte, hash.ByteSize())
	if _, err := io.ReadFull(p.secret, otp); err != nil {
		return nil, fmt.Errorf("reading one-time pad: %w", err)
	}
	mac := hash.XOr(bitarray.NewDense(otp, -1))
	return mac.Data(), nil
}

// A message is anything which can travel over a publicChannel.
type message interface {
	marshal() []byte
	unmarshal([]byte) error
}

// A bitAnnouncement publishes a string of bits, e.g. a peer's bases or its
// block parities, protobuf-encoded as
//
//	message BitAnnouncement {
//	  bytes bits = 1;
//	  uint64 len = 2;
//	}
type bitAnnouncement struct {
	bits bitarray.Dense
}

const (
	bitsField protowire.Number = 1
	lenField  protowire.Number = 2
)

// maxAnnouncementBytes bounds the encoded size of a bitAnnouncement of n bits:
// two tags, two varints of at most 10 bytes and the packed bits.
func maxAnnouncementBytes(n int) int {
	return 2 + 2*protowire.SizeVarint(^uint64(0)) + bitarray.BytesFor(n)
}

func (a *bitAnnouncement) marshal() []byte {
	var b []byte
	b = protowire.AppendTag(b, bitsField, protowire.BytesType)
	b = protowire.AppendBytes(b, a.bits.Data())
	b = protowire.AppendTag(b, lenField, protowire.VarintType)
	b = protowire.AppendVarint(b, uint64(a.bits.Size()))
	return b
}

func (a *bitAnnouncement) unmarshal(b []byte) error {
	var (
		data []byte
		n    uint64
	)
	for len(b) > 0 {
		num, typ, l := protowire.ConsumeTag(b)
		if l < 0 {
			return protowire.ParseError(l)
		}
		b = b[l:]
		switch {
		case num == bitsField && typ == protowire.BytesType:
			v, l := protowire.ConsumeBytes(b)
			if l < 0 {
				return protowire.ParseError(l)
			}
			data, b = v, b[l:]
		case num == lenField && typ == protowire.VarintType:
			v, l := protowire.ConsumeVarint(b)
			if l < 0 {
				return protowire.ParseError(l)
			}
			n, b = v, b[l:]
		default:
			l := protowire.ConsumeFieldValue(num, typ, b)
			if l < 0 {
				return protowire.ParseError(l)
			}
			b = b[l:]
		}
	}
	if n > uint64(len(data))*8 {
		return fmt.Errorf("announcement claims %d bits but carries %d bytes", n, len(data))
	}
	a.bits = bitarray.NewDense(data, int(n))
	return nil
}
