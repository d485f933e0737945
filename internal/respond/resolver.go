package respond

import (
	"context"
)

// ResolveRoot finds the conversation id for job: the id of the first
// status in its reply thread. The backward walk is capped so a cyclic or
// pathological reply graph cannot spin forever; hitting the cap, or any
// lookup failure (for example a deleted intermediate post), falls back to
// treating the current post as its own root.
func (r *Responder) ResolveRoot(ctx context.Context, job Job) string {
	if job.InReplyToID == "" {
		return job.StatusID
	}

	id := job.InReplyToID
	for depth := 0; depth < r.opts.MaxResolveDepth; depth++ {
		post, err := r.deps.Social.GetPost(ctx, id)
		if err != nil {
			r.logger.Warn("conversation root lookup failed, using current post as root",
				"status_id", job.StatusID, "failed_at", id, "error", err)
			return job.StatusID
		}
		if post.InReplyToID == "" {
			return post.ID
		}
		id = post.InReplyToID
	}

	r.logger.Warn("conversation root walk exceeded depth cap, using current post as root",
		"status_id", job.StatusID, "depth", r.opts.MaxResolveDepth)
	return job.StatusID
}
