package notes

import (
	"bytes"
	"compress/gzip"
	"compress/zlib"
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"strings"
)

// The note body lives in ZICNOTEDATA.ZDATA as a compressed protobuf
// document. There is no published schema, so the decoder below walks the
// raw wire format and picks out the handful of fields the reminder
// pipeline needs. Field numbers and paragraph-type constants match the
// layout observed in current macOS builds of Notes:
//
//	message["2"]["3"]       note document (older stores: message["2"]["2"])
//	doc["2"]                flat UTF-8 text of the whole note
//	doc["5"]                repeated attribute runs, sequential
//	run["1"]                run length in characters
//	run["2"]["1"]           paragraph type enum
//	run["2"]["5"]["2"]      checklist done flag
const (
	paraTypeChecklist = 103
	paraTypeDotted    = 4
	paraTypeDashed    = 5
	paraTypeNumbered  = 6
)

type protoField struct {
	num  int
	wire int
	u64  uint64 // varint / fixed value
	data []byte // length-delimited payload
}

// parseProtoFields splits a protobuf message into its top-level fields.
// Unknown wire types abort the parse; the caller treats that note as
// unparseable and skips it.
func parseProtoFields(data []byte) ([]protoField, error) {
	var fields []protoField
	for len(data) > 0 {
		tag, n := binary.Uvarint(data)
		if n <= 0 {
			return nil, errors.New("malformed field tag")
		}
		data = data[n:]

		f := protoField{num: int(tag >> 3), wire: int(tag & 7)}
		if f.num == 0 {
			return nil, errors.New("field number 0")
		}

		switch f.wire {
		case 0: // varint
			v, n := binary.Uvarint(data)
			if n <= 0 {
				return nil, errors.New("malformed varint")
			}
			f.u64 = v
			data = data[n:]
		case 1: // fixed64
			if len(data) < 8 {
				return nil, errors.New("truncated fixed64")
			}
			f.u64 = binary.LittleEndian.Uint64(data)
			data = data[8:]
		case 2: // length-delimited
			l, n := binary.Uvarint(data)
			if n <= 0 || uint64(len(data)-n) < l {
				return nil, errors.New("truncated length-delimited field")
			}
			f.data = data[n : n+int(l)]
			data = data[n+int(l):]
		case 5: // fixed32
			if len(data) < 4 {
				return nil, errors.New("truncated fixed32")
			}
			f.u64 = uint64(binary.LittleEndian.Uint32(data))
			data = data[4:]
		default:
			return nil, fmt.Errorf("unsupported wire type %d", f.wire)
		}
		fields = append(fields, f)
	}
	return fields, nil
}

func firstMessage(fields []protoField, num int) ([]protoField, bool) {
	for _, f := range fields {
		if f.num == num && f.wire == 2 {
			sub, err := parseProtoFields(f.data)
			if err != nil {
				return nil, false
			}
			return sub, true
		}
	}
	return nil, false
}

func firstBytes(fields []protoField, num int) ([]byte, bool) {
	for _, f := range fields {
		if f.num == num && f.wire == 2 {
			return f.data, true
		}
	}
	return nil, false
}

func firstVarint(fields []protoField, num int) (uint64, bool) {
	for _, f := range fields {
		if f.num == num && f.wire == 0 {
			return f.u64, true
		}
	}
	return 0, false
}

func hasField(fields []protoField, nums ...int) bool {
	for _, f := range fields {
		for _, n := range nums {
			if f.num == n {
				return true
			}
		}
	}
	return false
}

// noteDocument navigates the container wrapping to the inner document
// that carries the note text (field 2) and attribute runs (field 5).
func noteDocument(top []protoField) ([]protoField, bool) {
	candidate, ok := firstMessage(top, 2)
	if !ok {
		return nil, false
	}
	if inner, ok := firstMessage(candidate, 3); ok && hasField(inner, 2, 5) {
		return inner, true
	}
	if inner, ok := firstMessage(candidate, 2); ok && hasField(inner, 2, 5) {
		return inner, true
	}
	if hasField(candidate, 2, 5) {
		return candidate, true
	}
	return nil, false
}

// decompressNoteData inflates ZDATA, which is zlib in older stores and
// gzip in newer ones.
func decompressNoteData(zdata []byte) ([]byte, error) {
	var (
		r   io.ReadCloser
		err error
	)
	if len(zdata) > 2 && zdata[0] == 0x1f && zdata[1] == 0x8b {
		r, err = gzip.NewReader(bytes.NewReader(zdata))
	} else {
		r, err = zlib.NewReader(bytes.NewReader(zdata))
	}
	if err != nil {
		return nil, fmt.Errorf("inflating note data: %w", err)
	}
	defer r.Close()
	return io.ReadAll(r)
}

// renderNoteMarkdown converts one compressed note document into markdown:
// checklist paragraphs become task-list items, plain list paragraphs
// become bullets, everything else is emitted as a paragraph of its own.
// Checked items are kept (as "- [x]"); exclusion is the parser's job.
func renderNoteMarkdown(zdata []byte) (string, error) {
	raw, err := decompressNoteData(zdata)
	if err != nil {
		return "", err
	}
	top, err := parseProtoFields(raw)
	if err != nil {
		return "", fmt.Errorf("decoding note document: %w", err)
	}
	doc, ok := noteDocument(top)
	if !ok {
		return "", errors.New("note document not found")
	}

	textBytes, ok := firstBytes(doc, 2)
	if !ok || len(textBytes) == 0 {
		return "", nil
	}
	// Attribute run lengths count characters, not bytes.
	noteText := []rune(string(textBytes))

	type block struct {
		text string
		list bool
	}
	var blocks []block

	var (
		pos     int
		pending strings.Builder
		// Paragraph attributes accumulate across runs until a newline
		// closes the paragraph.
		paraType    uint64
		hasParaType bool
		paraDone    bool
	)

	flush := func() {
		text := strings.TrimSpace(pending.String())
		pending.Reset()
		effective := uint64(0)
		if hasParaType {
			effective = paraType
		}
		hasParaType = false
		done := paraDone
		paraDone = false

		if text == "" {
			return
		}
		switch effective {
		case paraTypeChecklist:
			mark := "[ ]"
			if done {
				mark = "[x]"
			}
			blocks = append(blocks, block{text: "- " + mark + " " + text, list: true})
		case paraTypeDotted, paraTypeDashed, paraTypeNumbered:
			blocks = append(blocks, block{text: "- " + text, list: true})
		default:
			blocks = append(blocks, block{text: text})
		}
	}

	for _, f := range doc {
		if f.num != 5 || f.wire != 2 {
			continue
		}
		run, err := parseProtoFields(f.data)
		if err != nil {
			continue
		}

		length := 1
		if v, ok := firstVarint(run, 1); ok {
			// Lengths outside the remaining text mean a corrupt run
			// table; a huge varint would also overflow int.
			if v > uint64(len(noteText)-pos) {
				v = uint64(len(noteText) - pos)
			}
			length = int(v)
		}
		end := pos + length
		if end > len(noteText) {
			end = len(noteText)
		}
		runText := string(noteText[pos:end])
		pos = end

		if attrs, ok := firstMessage(run, 2); ok {
			if v, ok := firstVarint(attrs, 1); ok {
				paraType = v
				hasParaType = true
			}
			if checklist, ok := firstMessage(attrs, 5); ok {
				if v, ok := firstVarint(checklist, 2); ok {
					paraDone = v != 0
				}
			}
		}

		// A run may span several paragraphs; close each one on newline.
		for {
			idx := strings.IndexByte(runText, '\n')
			if idx < 0 {
				break
			}
			pending.WriteString(runText[:idx])
			flush()
			runText = runText[idx+1:]
		}
		pending.WriteString(runText)
	}
	if strings.TrimSpace(pending.String()) != "" {
		flush()
	}

	var b strings.Builder
	for i, bl := range blocks {
		if i > 0 {
			if bl.list && blocks[i-1].list {
				b.WriteString("\n")
			} else {
				b.WriteString("\n\n")
			}
		}
		b.WriteString(bl.text)
	}
	return b.String(), nil
}
