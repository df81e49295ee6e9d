package handlers

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"

	"github.com/gofiber/websocket/v2"
	"github.com/sirupsen/logrus"

	"github.com/codebuildervaibhav/audio-summarizer/internal/logger"
	"github.com/codebuildervaibhav/audio-summarizer/internal/pipeline"
	"github.com/codebuildervaibhav/audio-summarizer/internal/queue"
	"github.com/codebuildervaibhav/audio-summarizer/internal/types"
)

const (
	streamEndSignal   = "END"
	streamFilename    = "stream.webm"
	streamContentType = "audio/webm"
	maxStreamNameLen  = 200
)

// StreamHandler handles WebSocket audio streaming
type StreamHandler struct {
	svc     Service
	maxSize int64
	log     *logger.Logger
}

// NewStreamHandler creates a new stream handler. Streams larger than
// maxSize bytes are refused.
func NewStreamHandler(svc Service, maxSize int64, log *logger.Logger) *StreamHandler {
	return &StreamHandler{svc: svc, maxSize: maxSize, log: log}
}

// streamSession buffers one connection. Text frames set the name, binary
// frames carry audio and the END text frame submits.
type streamSession struct {
	buffer  bytes.Buffer
	name    string
	maxSize int64
}

// add consumes one frame and reports whether the client asked to submit.
func (s *streamSession) add(messageType int, message []byte) (done bool, err error) {
	switch messageType {
	case websocket.TextMessage:
		text := string(message)
		if text == streamEndSignal {
			return true, nil
		}
		if len(text) > 0 && len(text) < maxStreamNameLen {
			s.name = text
		}
	case websocket.BinaryMessage:
		if s.maxSize > 0 && int64(s.buffer.Len()+len(message)) > s.maxSize {
			return true, errStreamTooLarge
		}
		s.buffer.Write(message)
	}
	return false, nil
}

func (s *streamSession) upload() pipeline.Upload {
	data := s.buffer.Bytes()
	return pipeline.Upload{
		Filename:    streamFilename,
		ContentType: streamContentType,
		Size:        int64(len(data)),
		Name:        s.name,
		Source:      types.SourceStream,
		Save: func(dst string) error {
			return os.WriteFile(dst, data, 0644)
		},
	}
}

type streamError struct {
	code, msg string
}

func (e *streamError) Error() string { return e.msg }

var errStreamTooLarge = &streamError{code: "ERR_FILE_TOO_LARGE", msg: "Stream exceeds the maximum upload size"}

// Handle processes WebSocket connections
func (h *StreamHandler) Handle(c *websocket.Conn) {
	defer c.Close()

	log := h.log.WithField("remote_ip", c.RemoteAddr().String())
	log.Info("WebSocket connection established")

	session := &streamSession{maxSize: h.maxSize}
	for {
		messageType, message, err := c.ReadMessage()
		if err != nil {
			log.WithField("error", err.Error()).Info("WebSocket closed before END")
			return
		}

		done, err := session.add(messageType, message)
		if err != nil {
			h.reply(c, log, streamReply(nil, "", err))
			return
		}
		if done {
			break
		}
	}

	id, err := h.svc.SubmitUpload(session.upload())
	if err == nil {
		log.WithFields(logrus.Fields{"task_id": id, "bytes": session.buffer.Len()}).Info("Stream accepted")
	}
	h.reply(c, log, streamReply(log, id, err))
}

func (h *StreamHandler) reply(c *websocket.Conn, log *logrus.Entry, body map[string]any) {
	payload, err := json.Marshal(body)
	if err != nil {
		return
	}
	if err := c.WriteMessage(websocket.TextMessage, payload); err != nil {
		log.WithField("error", err.Error()).Warn("Failed to send stream reply")
	}
}

// streamReply builds the final frame sent to the client.
func streamReply(log *logrus.Entry, id string, err error) map[string]any {
	if err == nil {
		return map[string]any{"taskId": id, "status": "processing"}
	}

	var (
		code, msg string
		serr      *streamError
		verr      *pipeline.ValidationError
	)
	switch {
	case errors.As(err, &serr):
		code, msg = serr.code, serr.msg
	case errors.As(err, &verr):
		code, msg = verr.Code, verr.Reason
	case errors.Is(err, queue.ErrQueueFull), errors.Is(err, queue.ErrStopped):
		code, msg = "ERR_QUEUE_FULL", "Server is busy, try again later"
	default:
		code, msg = "ERR_SUBMIT_FAILED", "Failed to start processing"
		if log != nil {
			log.WithField("error", err.Error()).Error("Stream submission failed")
		}
	}
	return map[string]any{"error": msg, "code": code}
}
