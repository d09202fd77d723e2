package usecase

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"autogen-chat/internal/domain"
)

const (
	imagePrefix      = "images/"
	audioPrefix      = "audio/"
	imageContentType = "image/png"
	audioContentType = "audio/mpeg"
)

type LLMClient interface {
	Chat(ctx context.Context, messages []domain.ChatMessage) (string, error)
}

type ImageClient interface {
	GenerateImage(ctx context.Context, prompt string) (string, error)
	Download(ctx context.Context, url string) ([]byte, error)
}

type SpeechClient interface {
	Synthesize(ctx context.Context, text string) ([]byte, error)
}

type MediaStore interface {
	Put(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// ChatService runs one chat turn: completion, optional image, speech. The
// service holds no per-request state and is safe for concurrent use.
type ChatService struct {
	llm    LLMClient
	images ImageClient
	speech SpeechClient
	media  MediaStore
}

type ChatInput struct {
	Message string
}

// ChatOutput carries the completion text and the public URLs of the uploaded
// media. ImageURL is empty when no image was requested.
type ChatOutput struct {
	Text     string
	ImageURL string
	AudioURL string
}

func NewChatService(llm LLMClient, images ImageClient, speech SpeechClient, media MediaStore) (*ChatService, error) {
	if llm == nil {
		return nil, errors.New("usecase: llm client must not be nil")
	}
	if images == nil {
		return nil, errors.New("usecase: image client must not be nil")
	}
	if speech == nil {
		return nil, errors.New("usecase: speech client must not be nil")
	}
	if media == nil {
		return nil, errors.New("usecase: media store must not be nil")
	}
	return &ChatService{
		llm:    llm,
		images: images,
		speech: speech,
		media:  media,
	}, nil
}

// Chat executes the steps strictly in order and stops at the first failure.
// Nothing produced before the failure is returned.
func (s *ChatService) Chat(ctx context.Context, in ChatInput) (ChatOutput, error) {
	if strings.TrimSpace(in.Message) == "" {
		return ChatOutput{}, newError(ErrorInvalidInput, "empty_message", nil)
	}

	text, err := s.llm.Chat(ctx, buildPromptMessages(in.Message))
	if err != nil {
		return ChatOutput{}, newError(ErrorUpstream, "completion_error", err)
	}

	var imageURL string
	if domain.WantsImage(in.Message) {
		imageURL, err = s.createImage(ctx, in.Message)
		if err != nil {
			return ChatOutput{}, err
		}
	}

	audio, err := s.speech.Synthesize(ctx, text)
	if err != nil {
		return ChatOutput{}, newError(ErrorUpstream, "speech_error", err)
	}
	audioURL, err := s.media.Put(ctx, mediaKey(audioPrefix, ".mp3"), audioContentType, audio)
	if err != nil {
		return ChatOutput{}, newError(ErrorUpstream, "audio_upload_error", err)
	}

	return ChatOutput{
		Text:     text,
		ImageURL: imageURL,
		AudioURL: audioURL,
	}, nil
}

func (s *ChatService) createImage(ctx context.Context, prompt string) (string, error) {
	generated, err := s.images.GenerateImage(ctx, prompt)
	if err != nil {
		return "", newError(ErrorUpstream, "image_error", err)
	}
	data, err := s.images.Download(ctx, generated)
	if err != nil {
		return "", newError(ErrorUpstream, "image_download_error", err)
	}
	url, err := s.media.Put(ctx, mediaKey(imagePrefix, ".png"), imageContentType, data)
	if err != nil {
		return "", newError(ErrorUpstream, "image_upload_error", err)
	}
	return url, nil
}

// mediaKey builds "<prefix><unix-ms>-<id><ext>". The id keeps keys unique when
// two uploads land in the same millisecond.
func mediaKey(prefix, ext string) string {
	ms := strconv.FormatInt(now().UnixMilli(), 10)
	return prefix + ms + "-" + newUUID() + ext
}

var now = time.Now

var newUUID = func() string {
	return uuid.NewString()
}
