package anthropicopenai

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestTransformStream_RewritesTextDeltasToAnthropicEvents(t *testing.T) {
	upstream := strings.NewReader(
		"data: {\"id\":\"chatcmpl-1\",\"model\":\"gpt-4o\",\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}],\"usage\":{\"prompt_tokens\":5}}\n\n" +
			"data: [DONE]\n\n",
	)

	var out bytes.Buffer
	xform := OpenAIToAnthropic{}

	err := xform.TransformStream(context.Background(), upstream, &out, nil)
	require.NoError(t, err)

	body := out.String()
	require.Contains(t, body, "event: message_start")
	require.Contains(t, body, "event: content_block_start")
	require.Contains(t, body, `"text":"hi"`)
	require.Contains(t, body, "event: content_block_stop")
	require.Contains(t, body, "event: message_stop")
}

func TestTransformStream_MessageDeltaCarriesUsage(t *testing.T) {
	upstream := strings.NewReader(
		"data: {\"id\":\"chatcmpl-1\",\"model\":\"gpt-4o\",\"choices\":[{\"delta\":{\"content\":\"hi\"}}]}\n\n" +
			"data: {\"choices\":[{\"delta\":{},\"finish_reason\":\"stop\"}],\"usage\":{\"prompt_tokens\":5,\"completion_tokens\":2}}\n\n" +
			"data: [DONE]\n\n",
	)

	var out bytes.Buffer
	xform := OpenAIToAnthropic{}

	err := xform.TransformStream(context.Background(), upstream, &out, nil)
	require.NoError(t, err)

	body := out.String()
	idx := strings.Index(body, "event: message_delta")
	require.GreaterOrEqual(t, idx, 0)

	deltaFrame := body[idx:]
	require.Contains(t, deltaFrame, `"usage"`)
	require.Contains(t, deltaFrame, `"input_tokens":5`)
	require.Contains(t, deltaFrame, `"output_tokens":2`)
}

func TestTransformStream_ForwardsUnparsableDataLinesUntouched(t *testing.T) {
	upstream := strings.NewReader("data: not-json-at-all\n\ndata: [DONE]\n\n")

	var out bytes.Buffer
	xform := OpenAIToAnthropic{}

	err := xform.TransformStream(context.Background(), upstream, &out, nil)
	require.NoError(t, err)
	require.Contains(t, out.String(), "data: not-json-at-all")
}
