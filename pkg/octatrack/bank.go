package octatrack

import (
	"bytes"
	"encoding/binary"
	"fmt"
	"os"
)

var bankHeader = [22]byte{
	'F', 'O', 'R', 'M', 0, 0, 0, 0,
	'D', 'P', 'S', '1', 'B', 'A', 'N', 'K',
	0, 0, 0, 0, 0, 0x17,
}

var defaultPartNames = [PartsPerBank][7]uint8{
	{'O', 'N', 'E'},
	{'T', 'W', 'O'},
	{'T', 'H', 'R', 'E', 'E'},
	{'F', 'O', 'U', 'R'},
}

// Bank is the content of a bank??.work or bank??.strd file
type Bank struct {
	Header       [22]uint8
	Patterns     [PatternsPerBank]Pattern
	PartsUnsaved [PartsPerBank]Part
	PartsSaved   [PartsPerBank]Part
	Unknown      [5]uint8
	PartNames    [PartsPerBank][7]uint8
	Checksum     [2]uint8
}

// NewBank returns a bank in the state the device creates it
func NewBank() *Bank {
	b := &Bank{
		Header:    bankHeader,
		PartNames: defaultPartNames,
	}
	for i := range b.Patterns {
		b.Patterns[i] = NewPattern()
	}
	for i := 0; i < PartsPerBank; i++ {
		b.PartsUnsaved[i] = NewPart(i)
		b.PartsSaved[i] = NewPart(i)
	}
	return b
}

// DecodeBank parses raw bank file data
func DecodeBank(data []byte) (*Bank, error) {
	if len(data) != BankSize {
		return nil, formatErr("bank", "got %d bytes, want %d", len(data), BankSize)
	}
	b := new(Bank)
	if err := binary.Read(bytes.NewReader(data), binary.BigEndian, b); err != nil {
		return nil, formatErr("bank", "%v", err)
	}
	if err := b.checkHeaders(); err != nil {
		return nil, err
	}
	return b, nil
}

// Encode serializes the bank to its on-disk layout
func (b *Bank) Encode() ([]byte, error) {
	var buf bytes.Buffer
	buf.Grow(BankSize)
	if err := binary.Write(&buf, binary.BigEndian, b); err != nil {
		return nil, fmt.Errorf("failed to encode bank: %w", err)
	}
	if buf.Len() != BankSize {
		return nil, fmt.Errorf("encoded bank is %d bytes, want %d", buf.Len(), BankSize)
	}
	return buf.Bytes(), nil
}

// IsDefault reports whether the bank is untouched since the device created it.
// The checksum is not compared.
func (b *Bank) IsDefault() bool {
	d := NewBank()
	d.Checksum = b.Checksum
	return *d == *b
}

// Clone returns a deep copy of the bank
func (b *Bank) Clone() *Bank {
	c := *b
	return &c
}

func (b *Bank) checkHeaders() error {
	if b.Header != bankHeader {
		return formatErr("bank", "bad header % x", b.Header[:16])
	}
	for i := range b.Patterns {
		if err := b.Patterns[i].checkHeaders(); err != nil {
			return fmt.Errorf("pattern %d: %w", i+1, err)
		}
	}
	for i := 0; i < PartsPerBank; i++ {
		if err := b.PartsUnsaved[i].checkHeader(); err != nil {
			return fmt.Errorf("unsaved part %d: %w", i+1, err)
		}
		if err := b.PartsSaved[i].checkHeader(); err != nil {
			return fmt.Errorf("saved part %d: %w", i+1, err)
		}
	}
	return nil
}

// ReadBankFile reads and decodes a bank file
func ReadBankFile(path string) (*Bank, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read bank file: %w", err)
	}
	b, err := DecodeBank(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return b, nil
}

// WriteBankFile encodes the bank and atomically replaces path with it
func WriteBankFile(path string, b *Bank) error {
	data, err := b.Encode()
	if err != nil {
		return err
	}
	return WriteFileAtomic(path, data)
}
