package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	awss3 "github.com/aws/aws-sdk-go-v2/service/s3"
	awsssm "github.com/aws/aws-sdk-go-v2/service/ssm"

	"autogen-chat/handler"
	"autogen-chat/internal/config"
	"autogen-chat/internal/integrations/mediastore"
	"autogen-chat/internal/integrations/openai"
	"autogen-chat/internal/integrations/paramstore"
	"autogen-chat/internal/logging"
	"autogen-chat/internal/usecase"
)

// loadBackend reads configuration and builds the logger and chat handler
// shared by the serve and lambda commands.
func loadBackend(ctx context.Context) (*config.Config, *slog.Logger, *handler.Handler, error) {
	if err := config.LoadDotEnv(); err != nil {
		return nil, nil, nil, err
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, nil, err
	}

	log, err := logging.New(cfg.Logging)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("initialize logger: %w", err)
	}
	slog.SetDefault(log)

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("load AWS config: %w", err)
	}

	svc, err := newChatService(cfg, awsCfg)
	if err != nil {
		return nil, nil, nil, err
	}
	h, err := handler.NewHandler(svc, log)
	if err != nil {
		return nil, nil, nil, err
	}
	return cfg, log, h, nil
}

func newChatService(cfg *config.Config, awsCfg aws.Config) (*usecase.ChatService, error) {
	keys, err := newKeySource(cfg, awsCfg)
	if err != nil {
		return nil, err
	}

	ai, err := openai.NewClient(keys,
		openai.WithBaseURL(cfg.OpenAI.BaseURL),
		openai.WithHTTPClient(&http.Client{Timeout: cfg.OpenAI.Timeout}),
		openai.WithChatModel(cfg.OpenAI.ChatModel, cfg.OpenAI.Temperature),
		openai.WithImageModel(cfg.OpenAI.ImageModel, cfg.OpenAI.ImageSize),
		openai.WithSpeech(cfg.OpenAI.SpeechModel, cfg.OpenAI.SpeechVoice),
	)
	if err != nil {
		return nil, fmt.Errorf("create OpenAI client: %w", err)
	}

	s3Client := awss3.NewFromConfig(awsCfg, func(o *awss3.Options) {
		if cfg.Media.Endpoint != "" {
			o.BaseEndpoint = aws.String(cfg.Media.Endpoint)
		}
		o.UsePathStyle = cfg.Media.UsePathStyle
	})
	media, err := mediastore.New(s3Client, cfg.Media.Bucket, publicMediaURL(cfg.Media, awsCfg.Region), mediastore.WithACL(cfg.Media.ACL))
	if err != nil {
		return nil, fmt.Errorf("create media store: %w", err)
	}

	svc, err := usecase.NewChatService(ai, ai, ai, media)
	if err != nil {
		return nil, fmt.Errorf("create chat service: %w", err)
	}
	return svc, nil
}

func newKeySource(cfg *config.Config, awsCfg aws.Config) (openai.KeySource, error) {
	if !cfg.UsesParamStore() {
		return openai.StaticKey(cfg.OpenAI.APIKey), nil
	}
	ssmClient, err := paramstore.New(awsssm.NewFromConfig(awsCfg))
	if err != nil {
		return nil, fmt.Errorf("create SSM client: %w", err)
	}
	src, err := paramstore.NewTokenSource(ssmClient, paramstore.TokenParameterName(cfg.OpenAI.ParamPrefix))
	if err != nil {
		return nil, fmt.Errorf("create API key source: %w", err)
	}
	return src, nil
}

// publicMediaURL picks the URL prefix uploaded objects are served from.
func publicMediaURL(m config.MediaConfig, region string) string {
	if m.PublicBaseURL != "" {
		return m.PublicBaseURL
	}
	if m.Endpoint == "" {
		return mediastore.VirtualHostedURL(m.Bucket, region)
	}

	base := strings.TrimRight(m.Endpoint, "/")
	if !m.UsePathStyle {
		if u, err := url.Parse(base); err == nil && u.Host != "" {
			u.Host = m.Bucket + "." + u.Host
			return u.String()
		}
	}
	return base + "/" + m.Bucket
}
