package telegram

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxVoiceSize bounds downloads, Telegram voice notes are far smaller
var maxVoiceSize int64 = 20 << 20

var errFileTooLarge = errors.New("file too large")

// downloadFile downloads a file from Telegram
func (b *Bot) downloadFile(ctx context.Context, fileURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := b.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download failed with status: %d", resp.StatusCode)
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxVoiceSize+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if int64(len(data)) > maxVoiceSize {
		return nil, fmt.Errorf("over %d bytes: %w", maxVoiceSize, errFileTooLarge)
	}

	return data, nil
}

// downloadVoice fetches the voice note or audio file attached to msg.
// The OGG/Opus voice note is passed on as is, the transcriber accepts it.
func (b *Bot) downloadVoice(ctx context.Context, msg *tgbotapi.Message) ([]byte, string, error) {
	var fileID string
	switch {
	case msg.Voice != nil:
		fileID = msg.Voice.FileID
	case msg.Audio != nil:
		fileID = msg.Audio.FileID
	default:
		return nil, "", fmt.Errorf("message has no audio")
	}

	// Get file info from Telegram
	file, err := b.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, "", fmt.Errorf("get file info: %w", err)
	}

	data, err := b.downloadFile(ctx, file.Link(b.api.Token))
	if err != nil {
		return nil, "", err
	}

	var filename string
	if file.FilePath != "" {
		filename = path.Base(file.FilePath)
	}
	return data, filename, nil
}
