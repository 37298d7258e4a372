package discord

import (
	"bufio"
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"os"
	"sync"
)

// dcaMagic abre los archivos DCA1; los dca0 (airhorn) empiezan directo con frames.
var dcaMagic = []byte("DCA1")

// maxOpusFrame acota un largo corrupto antes de reservar memoria.
const maxOpusFrame = 4000

// readDCA lee frames opus: cada uno es un int16 little-endian con el largo y luego los bytes.
func readDCA(r io.Reader) ([][]byte, error) {
	br := bufio.NewReader(r)

	head, err := br.Peek(len(dcaMagic))
	if err == nil && bytes.Equal(head, dcaMagic) {
		if _, err := br.Discard(len(dcaMagic)); err != nil {
			return nil, err
		}
		var metaLen int32
		if err := binary.Read(br, binary.LittleEndian, &metaLen); err != nil {
			return nil, fmt.Errorf("dca header: %w", err)
		}
		if metaLen < 0 {
			return nil, fmt.Errorf("dca header: bad metadata length %d", metaLen)
		}
		if _, err := br.Discard(int(metaLen)); err != nil {
			return nil, fmt.Errorf("dca metadata: %w", err)
		}
	}

	var frames [][]byte
	for {
		var n int16
		err := binary.Read(br, binary.LittleEndian, &n)
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return frames, nil
		}
		if err != nil {
			return nil, err
		}
		if n <= 0 || n > maxOpusFrame {
			return nil, fmt.Errorf("dca: bad frame length %d", n)
		}
		buf := make([]byte, n)
		if _, err := io.ReadFull(br, buf); err != nil {
			return nil, fmt.Errorf("dca frame: %w", err)
		}
		frames = append(frames, buf)
	}
}

// alertClip carga el clip una sola vez. Si el archivo no existe no se cachea:
// puede aparecer después sin reiniciar el bot.
type alertClip struct {
	path string

	mu     sync.Mutex
	frames [][]byte
}

func (c *alertClip) load() ([][]byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.frames != nil {
		return c.frames, nil
	}
	if c.path == "" {
		return nil, os.ErrNotExist
	}
	f, err := os.Open(c.path)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	frames, err := readDCA(f)
	if err != nil {
		return nil, err
	}
	if len(frames) == 0 {
		return nil, fmt.Errorf("dca %s: no frames", c.path)
	}
	c.frames = frames
	return frames, nil
}
