package publish

import (
	"bytes"
	"cmp"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/SevereCloud/vksdk/v3/api"

	"github.com/m3rciful/postbot/core/config"
	"github.com/m3rciful/postbot/core/logger"
)

const (
	defaultAPIURL     = "https://api.vk.com/method/"
	defaultAPIVersion = "5.131"
	maxImageBytes     = 20 << 20
)

// Options configures the VK client.
type Options struct {
	Token      string
	GroupID    int64
	APIVersion string
	// APIURL is the method endpoint prefix, e.g. https://api.vk.com/method/.
	APIURL     string
	HTTPClient *http.Client
}

// VK talks to the VK API on behalf of one community. Calls are never retried.
type VK struct {
	api     *api.VK
	groupID int
	token   string
	client  *http.Client
}

var _ Publisher = (*VK)(nil)

// NewVK returns a client; GroupID may be given in either sign.
func NewVK(opts Options) *VK {
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 15 * time.Second}
	}
	vk := api.NewVK(opts.Token)
	vk.MethodURL = strings.TrimRight(cmp.Or(opts.APIURL, defaultAPIURL), "/") + "/"
	vk.Version = cmp.Or(opts.APIVersion, defaultAPIVersion)
	vk.Client = client

	gid := opts.GroupID
	if gid < 0 {
		gid = -gid
	}
	return &VK{api: vk, groupID: int(gid), token: opts.Token, client: client}
}

// FromConfig builds a client from the vk config section.
func FromConfig(cfg config.VKConfig) *VK {
	return NewVK(Options{
		Token:      cfg.Token,
		GroupID:    cfg.GroupID,
		APIVersion: cfg.APIVersion,
		APIURL:     cfg.APIURL,
		HTTPClient: &http.Client{Timeout: config.Timeout(cfg.TimeoutSeconds)},
	})
}

// Publish posts to the community wall on behalf of the community.
func (v *VK) Publish(ctx context.Context, text, attachment string) (int64, error) {
	start := time.Now()
	params := api.Params{
		"owner_id":   -v.groupID,
		"from_group": true,
		"message":    text,
	}
	if attachment != "" {
		params["attachments"] = attachment
	}

	var postID int64
	resp, err := v.api.WallPost(params)
	if err == nil {
		postID = int64(resp.PostID)
	}
	v.log(ctx, "vk.publish", start, err,
		slog.Int64("post_id", postID),
		slog.String("attachment", attachment),
	)
	if err != nil {
		return 0, fmt.Errorf("vk: wall.post: %w", err)
	}
	return postID, nil
}

// UploadImage fetches imageURL and stores it as a wall photo of the community.
func (v *VK) UploadImage(ctx context.Context, imageURL string) (string, error) {
	start := time.Now()
	ref, err := v.uploadImage(ctx, imageURL)
	v.log(ctx, "vk.upload", start, err, slog.String("attachment", ref))
	return ref, err
}

func (v *VK) uploadImage(ctx context.Context, imageURL string) (string, error) {
	data, err := v.download(ctx, imageURL)
	if err != nil {
		return "", err
	}
	saved, err := v.api.UploadGroupWallPhoto(v.groupID, bytes.NewReader(data))
	if err != nil {
		return "", fmt.Errorf("vk: upload wall photo: %w", err)
	}
	if len(saved) == 0 {
		return "", fmt.Errorf("vk: saveWallPhoto returned no photos")
	}
	return fmt.Sprintf("photo%d_%d", saved[0].OwnerID, saved[0].ID), nil
}

func (v *VK) download(ctx context.Context, imageURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, imageURL, nil)
	if err != nil {
		return nil, fmt.Errorf("vk: image request: %w", err)
	}
	resp, err := v.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("vk: fetch image: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("vk: fetch image: http %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("vk: read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("vk: image larger than %d bytes", maxImageBytes)
	}
	return data, nil
}

// Search returns texts of recent posts matching topic. Posts without text are skipped.
func (v *VK) Search(ctx context.Context, topic string, limit int) ([]string, error) {
	start := time.Now()
	if limit <= 0 {
		limit = 5
	}
	resp, err := v.api.NewsfeedSearch(api.Params{
		"q":     topic,
		"count": limit,
	})

	var texts []string
	if err == nil {
		for _, it := range resp.Items {
			if t := strings.TrimSpace(it.Text); t != "" {
				texts = append(texts, t)
			}
		}
	}
	v.log(ctx, "vk.search", start, err,
		slog.String("topic", logger.SanitizeLimit(topic, 64)),
		slog.Int("count", len(texts)),
	)
	if err != nil {
		return nil, fmt.Errorf("vk: newsfeed.search: %w", err)
	}
	return texts, nil
}

func (v *VK) log(ctx context.Context, event string, start time.Time, err error, attrs ...slog.Attr) {
	attrs = append([]slog.Attr{
		slog.String("status", logger.Status(err)),
		slog.Duration("duration", logger.Took(start)),
	}, attrs...)
	if err != nil {
		attrs = append(attrs, slog.String("err", logger.SanitizeLimit(v.redact(err.Error()), 256)))
		logger.Warn(ctx, logger.CompPublish, event, attrs...)
		return
	}
	logger.Info(ctx, logger.CompPublish, event, attrs...)
}

func (v *VK) redact(s string) string {
	if v.token == "" {
		return s
	}
	return strings.ReplaceAll(s, v.token, "***")
}
