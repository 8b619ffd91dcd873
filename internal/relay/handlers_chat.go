package relay

import (
	"context"
	"encoding/base64"
)

func handleText(ctx context.Context, h *Hub, conn Conn, env Envelope) {
	identity, ok := h.requireSession(conn, env.Type)
	if !ok {
		return
	}
	content := env.String("content")
	if content == "" {
		return
	}

	h.Broadcast(TextMessage{
		Type:      TypeText,
		From:      identity.Username,
		Content:   content,
		Timestamp: h.timestamp(),
	})
	h.audited(h.audit.RecordText(ctx, identity.Username, content), "text", conn)
}

func handleFile(ctx context.Context, h *Hub, conn Conn, env Envelope) {
	identity, ok := h.requireSession(conn, env.Type)
	if !ok {
		return
	}
	filename := env.String("filename")
	if filename == "" || !env.Has("data") {
		h.Send(conn, Notice{Type: TypeError, Msg: "invalid file"})
		return
	}
	mimetype := env.String("mimetype")
	size, _ := env.Int64("size")

	// Persistence needs the decoded bytes; live delivery does not.
	if data, err := base64.StdEncoding.DecodeString(env.String("data")); err != nil {
		h.log.Warn().Err(err).Str("conn_id", conn.ID()).Str("filename", filename).Msg("file payload is not valid base64; relaying without persisting")
		h.audited(h.audit.RecordSystem(ctx, "ERROR - invalid base64 for file: "+filename), "file_decode", conn)
	} else {
		record := FileRecord{Filename: filename, Mimetype: mimetype, Size: size, Data: data}
		h.audited(h.audit.RecordFile(ctx, identity.Username, record), "file", conn)
	}

	h.BroadcastExcept(conn, FileMessage{
		Type:      TypeFile,
		From:      identity.Username,
		Filename:  filename,
		Mimetype:  mimetype,
		Size:      env.Raw("size"),
		Data:      env.Raw("data"),
		Timestamp: h.timestamp(),
	})
}
