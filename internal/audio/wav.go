package audio

import (
	"bytes"
	"encoding/binary"
)

// EncodeWAV serializes mono float32 samples as a 16-bit PCM WAV file. Used
// to package an utterance for upload to the transcription service.
func EncodeWAV(samples []float32, sampleRate int) []byte {
	dataSize := uint32(len(samples) * 2)

	buf := bytes.NewBuffer(make([]byte, 0, 44+int(dataSize)))
	buf.WriteString("RIFF")
	writeU32(buf, 36+dataSize)
	buf.WriteString("WAVE")

	const (
		bitsPerSample = 16
		channels      = 1
	)
	buf.WriteString("fmt ")
	writeU32(buf, 16)                                         // PCM subchunk size
	writeU16(buf, 1)                                          // PCM format
	writeU16(buf, channels)
	writeU32(buf, uint32(sampleRate))
	writeU32(buf, uint32(sampleRate*channels*bitsPerSample/8)) // byte rate
	writeU16(buf, channels*bitsPerSample/8)                    // block align
	writeU16(buf, bitsPerSample)

	buf.WriteString("data")
	writeU32(buf, dataSize)
	for _, s := range samples {
		v := s
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		writeU16(buf, uint16(int16(v*32767)))
	}
	return buf.Bytes()
}

func writeU16(buf *bytes.Buffer, v uint16) {
	var b [2]byte
	binary.LittleEndian.PutUint16(b[:], v)
	buf.Write(b[:])
}

func writeU32(buf *bytes.Buffer, v uint32) {
	var b [4]byte
	binary.LittleEndian.PutUint32(b[:], v)
	buf.Write(b[:])
}
