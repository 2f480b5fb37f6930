package hooks

import (
	"context"
	"encoding/json"
	"io"
	"net/url"

	"github.com/m-mizutani/goerr/v2"
)

// Handle reads an Event from stdin, forwards it to the server according to
// event, and writes the server's JSON answer to stdout.
func Handle(ctx context.Context, client *Client, event string, stdin io.Reader, stdout io.Writer) error {
	var in Event
	if err := json.NewDecoder(stdin).Decode(&in); err != nil {
		return goerr.Wrap(err, "decode stdin")
	}
	if err := in.Validate(event); err != nil {
		return err
	}

	var (
		data []byte
		err  error
	)
	switch event {
	case "interaction":
		data, err = handleInteraction(ctx, client, &in)
	case "mode":
		data, err = handleMode(ctx, client, &in)
	case "contact":
		data, err = handleContact(ctx, client, &in)
	}
	if err != nil {
		return err
	}
	return WriteOutput(stdout, data)
}

func contactPath(id string) string {
	return "/api/contacts/" + url.PathEscape(id)
}

func handleInteraction(ctx context.Context, client *Client, in *Event) ([]byte, error) {
	body, err := json.Marshal(map[string]any{
		"kind":   in.Kind,
		"points": in.Points,
	})
	if err != nil {
		return nil, goerr.Wrap(err, "encode interaction")
	}
	return client.Post(ctx, contactPath(in.ContactID)+"/interactions", body)
}

func handleMode(ctx context.Context, client *Client, in *Event) ([]byte, error) {
	body, err := json.Marshal(map[string]string{"mode": in.Mode})
	if err != nil {
		return nil, goerr.Wrap(err, "encode mode")
	}
	return client.Put(ctx, contactPath(in.ContactID)+"/warmth/mode", body)
}

func handleContact(ctx context.Context, client *Client, in *Event) ([]byte, error) {
	req := map[string]any{
		"id":           in.ContactID,
		"display_name": in.DisplayName,
		"mode":         in.Mode,
	}
	if in.InitialScore != nil {
		req["initial_score"] = *in.InitialScore
	}
	body, err := json.Marshal(req)
	if err != nil {
		return nil, goerr.Wrap(err, "encode contact")
	}
	return client.Post(ctx, "/api/contacts", body)
}
