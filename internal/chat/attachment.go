package chat

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
)

// ErrRetrieval marks failures fetching raw attachment bytes from the chat
// server. Callers report these to the user and keep the session where it is.
var ErrRetrieval = errors.New("attachment retrieval failed")

// DownloadAttachmentBytes fetches the raw bytes of an attachment, preferring
// the authed channel-upload endpoint and falling back to the attachment's
// direct URL. At most limit bytes are read.
func DownloadAttachmentBytes(ctx context.Context, httpClient *http.Client, apiBase, userToken string, att AttachmentRef, limit int64) ([]byte, error) {
	if limit <= 0 {
		return nil, fmt.Errorf("%w: limit must be > 0", ErrRetrieval)
	}
	if httpClient == nil {
		return nil, fmt.Errorf("%w: missing http client", ErrRetrieval)
	}

	key := strings.TrimSpace(att.Key)
	channelID := strings.TrimSpace(att.ChannelID)
	if key != "" && channelID != "" && strings.TrimSpace(userToken) != "" {
		u := fmt.Sprintf("%s/channels/%s/uploads/%s", strings.TrimRight(strings.TrimSpace(apiBase), "/"), url.PathEscape(channelID), url.PathEscape(key))
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
		}
		req.Header.Set("Authorization", "Bearer "+strings.TrimSpace(userToken))
		resp, err := httpClient.Do(req)
		if err == nil {
			defer resp.Body.Close()
			if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
				if err != nil {
					return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
				}
				return data, nil
			}
		}
	}

	rawURL := strings.TrimSpace(att.URL)
	if rawURL == "" {
		return nil, fmt.Errorf("%w: missing attachment url", ErrRetrieval)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	resp, err := httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, fmt.Errorf("%w: download status=%d", ErrRetrieval, resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, limit))
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrRetrieval, err)
	}
	return data, nil
}
