package respond

import (
	"context"
	"fmt"
)

// SpeechArtifactKey is the object storage key under which an asynchronous
// synthesis task writes its output.
func SpeechArtifactKey(taskID string) string {
	return "." + taskID + ".mp3"
}

// CheckSpeechTask polls for the output of an asynchronous synthesis task.
// When the artifact is not yet in object storage it returns an error so
// the queue's retry mechanism re-schedules the check (poll via retry).
// Once present, the audio is attached to a final reply; if the platform
// rejects the attachment, a link to the stored artifact is posted instead.
func (r *Responder) CheckSpeechTask(ctx context.Context, inReplyToID, taskID string) error {
	key := SpeechArtifactKey(taskID)

	audio, err := r.deps.Objects.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("speech artifact %s not ready: %w", key, err)
	}

	text := "Audio attached"
	var mediaIDs []string

	mediaID, err := r.deps.Social.UploadMedia(ctx, audio, taskID+".mp3")
	if err != nil {
		url := r.deps.Objects.PublicURL(key)
		r.logger.Warn("audio upload rejected, linking stored artifact instead",
			"task_id", taskID, "url", url, "error", err)
		text = "Audio stored at: " + url
	} else {
		mediaIDs = append(mediaIDs, mediaID)
	}

	if _, err := r.deps.Social.PostReply(ctx, text, inReplyToID, mediaIDs); err != nil {
		return fmt.Errorf("post speech reply: %w", err)
	}
	return nil
}
