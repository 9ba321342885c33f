package infrastructure

import (
	"bytes"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"websocket-core/internal/domain"
)

func writeRawFrame(t *testing.T, buf *bytes.Buffer, fin bool, opcode domain.Opcode, payload []byte) {
	t.Helper()
	frame := &domain.DataFrame{FIN: fin, Opcode: opcode, PayloadLen: uint64(len(payload)), Payload: payload}
	if err := WriteDataFrame(buf, frame); err != nil {
		t.Fatalf("failed to write frame: %v", err)
	}
}

func TestReceiver_RecvMessageDataFrames_SingleFrame(t *testing.T) {
	var buf bytes.Buffer
	writeRawFrame(t, &buf, true, domain.OpcodeText, []byte("hello"))

	r := NewReceiver(false)
	frames, err := r.RecvMessageDataFrames(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 {
		t.Fatalf("expected 1 frame, got %d", len(frames))
	}
}

func TestReceiver_RecvMessageDataFrames_Fragmented(t *testing.T) {
	var buf bytes.Buffer
	writeRawFrame(t, &buf, false, domain.OpcodeBinary, []byte{0x01, 0x02})
	writeRawFrame(t, &buf, false, domain.OpcodeContinuation, []byte{0x03, 0x04})
	writeRawFrame(t, &buf, true, domain.OpcodeContinuation, []byte{0x05})

	r := NewReceiver(false)
	frames, err := r.RecvMessageDataFrames(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 3 {
		t.Fatalf("expected 3 frames, got %d", len(frames))
	}
}

func TestReceiver_ControlFrameInterleavedDuringAssembly(t *testing.T) {
	var buf bytes.Buffer
	writeRawFrame(t, &buf, false, domain.OpcodeBinary, []byte{0x01})
	writeRawFrame(t, &buf, true, domain.OpcodePing, []byte("ping"))

	r := NewReceiver(false)

	frames, err := r.RecvMessageDataFrames(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(frames) != 1 || frames[0].Opcode != domain.OpcodePing {
		t.Fatalf("expected a single ping frame, got %+v", frames)
	}
	if !r.assembly.IsAssembling() {
		t.Error("expected in-progress assembly to survive an interleaved control frame")
	}

	writeRawFrame(t, &buf, true, domain.OpcodeContinuation, []byte{0x02})
	frames, err = r.RecvMessageDataFrames(&buf)
	if err != nil {
		t.Fatalf("unexpected error completing the message: %v", err)
	}
	if len(frames) != 2 {
		t.Fatalf("expected 2 buffered data frames, got %d", len(frames))
	}
}

func TestReceiver_UnexpectedContinuationWhenIdle(t *testing.T) {
	var buf bytes.Buffer
	writeRawFrame(t, &buf, true, domain.OpcodeContinuation, []byte{})

	r := NewReceiver(false)
	if _, err := r.RecvMessageDataFrames(&buf); err != domain.ErrUnexpectedContinuation {
		t.Errorf("expected ErrUnexpectedContinuation, got %v", err)
	}
}

func TestReceiver_UnexpectedDataFrameWhileAssembling(t *testing.T) {
	var buf bytes.Buffer
	writeRawFrame(t, &buf, false, domain.OpcodeText, []byte("a"))
	writeRawFrame(t, &buf, true, domain.OpcodeText, []byte("b"))

	// One call buffers the non-final Text frame, keeps reading, and rejects
	// the second Text frame that arrives while assembling.
	r := NewReceiver(false)
	if _, err := r.RecvMessageDataFrames(&buf); err != domain.ErrUnexpectedDataFrame {
		t.Errorf("expected ErrUnexpectedDataFrame, got %v", err)
	}
}

func TestReceiver_RecvMessage(t *testing.T) {
	var buf bytes.Buffer
	writeRawFrame(t, &buf, true, domain.OpcodeText, []byte("hi"))

	r := NewReceiver(false)
	msg, err := r.RecvMessage(&buf)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !msg.IsText() || string(msg.Payload) != "hi" {
		t.Errorf("unexpected message: %+v", msg)
	}
}

func TestReceiver_MaxMessageSizeEnforced(t *testing.T) {
	r := NewReceiverWithLimits(1000, 10, false)

	var buf bytes.Buffer
	writeRawFrame(t, &buf, false, domain.OpcodeBinary, make([]byte, 5))
	writeRawFrame(t, &buf, true, domain.OpcodeContinuation, make([]byte, 5))

	if _, err := r.RecvMessageDataFrames(&buf); err == nil {
		t.Error("expected message size limit to be enforced")
	}
}

// Feature: websocket-core, reassembly round trip
// Validates: the Receiver's state machine matches Message.FromDataFrames for any
// valid fragmentation of a payload into 1-4 pieces.
func TestProperty_ReceiverReassemblyRoundTrip(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100
	properties := gopter.NewProperties(parameters)

	properties.Property("fragmenting a payload and reassembling it returns the original bytes", prop.ForAll(
		func(fragmentCount int, totalLen int) bool {
			if fragmentCount < 1 {
				fragmentCount = 1
			}
			if fragmentCount > 4 {
				fragmentCount = 4
			}
			if totalLen < 0 {
				totalLen = 0
			}
			if totalLen > 400 {
				totalLen = 400
			}

			payload := make([]byte, totalLen)
			for i := range payload {
				payload[i] = byte(i % 256)
			}

			chunkSize := (totalLen + fragmentCount - 1) / fragmentCount
			if chunkSize == 0 {
				chunkSize = 1
			}

			var buf bytes.Buffer
			offset := 0
			first := true
			for offset < totalLen || first {
				end := offset + chunkSize
				if end > totalLen {
					end = totalLen
				}
				chunk := payload[offset:end]
				isLast := end >= totalLen

				opcode := domain.OpcodeContinuation
				if first {
					opcode = domain.OpcodeBinary
				}
				writeRawFrame(t, &buf, isLast, opcode, chunk)

				offset = end
				first = false
				if isLast {
					break
				}
			}

			r := NewReceiver(false)
			msg, err := r.RecvMessage(&buf)
			if err != nil {
				t.Logf("unexpected error: %v", err)
				return false
			}
			return bytes.Equal(msg.Payload, payload)
		},
		gen.IntRange(1, 4),
		gen.IntRange(0, 400),
	))

	properties.TestingRun(t)
}
