package transfer

// Payload and response shapes for the Meta Graph API calls the publish
// adapters make. Only the fields the pipeline reads are declared.

type GraphMediaResponse struct {
	ID     string `json:"id"`
	PostID string `json:"post_id"`
}

type GraphContainerStatus struct {
	StatusCode string `json:"status_code"`
	ID         string `json:"id"`
}

type GraphErrorResponse struct {
	Error struct {
		Message      string `json:"message"`
		Type         string `json:"type"`
		Code         int    `json:"code"`
		ErrorSubcode int    `json:"error_subcode"`
		IsTransient  bool   `json:"is_transient"`
		ErrorUserMsg string `json:"error_user_msg"`
		FbtraceID    string `json:"fbtrace_id"`
	} `json:"error"`
}
