package notion

import "time"

type page struct {
	Object         string              `json:"object,omitempty"`
	ID             string              `json:"id"`
	Archived       bool                `json:"archived"`
	LastEditedTime time.Time           `json:"last_edited_time"`
	Properties     map[string]property `json:"properties"`
}

type property struct {
	Type        string         `json:"type,omitempty"`
	Title       []richText     `json:"title,omitempty"`
	RichText    []richText     `json:"rich_text,omitempty"`
	MultiSelect []selectOption `json:"multi_select,omitempty"`
	Select      *selectOption  `json:"select,omitempty"`
	Date        *dateValue     `json:"date,omitempty"`
	Checkbox    *bool          `json:"checkbox,omitempty"`
}

type richText struct {
	Type      string     `json:"type,omitempty"`
	PlainText string     `json:"plain_text,omitempty"`
	Text      *textValue `json:"text,omitempty"`
	Equation  *equation  `json:"equation,omitempty"`
}

type textValue struct {
	Content string `json:"content"`
}

type equation struct {
	Expression string `json:"expression"`
}

type selectOption struct {
	Name string `json:"name"`
}

type dateValue struct {
	Start string `json:"start"`
}

type queryRequest struct {
	PageSize    int     `json:"page_size"`
	StartCursor *string `json:"start_cursor,omitempty"`
}

type queryResponse struct {
	Results    []page  `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type database struct {
	Properties map[string]schemaProperty `json:"properties"`
}

type schemaProperty struct {
	Type string `json:"type"`
}

type block struct {
	Object   string `json:"object,omitempty"`
	ID       string `json:"id,omitempty"`
	Type     string `json:"type"`
	Archived bool   `json:"archived,omitempty"`

	Paragraph *blockText `json:"paragraph,omitempty"`
	Heading1  *blockText `json:"heading_1,omitempty"`
	Heading2  *blockText `json:"heading_2,omitempty"`
	Heading3  *blockText `json:"heading_3,omitempty"`
	Bulleted  *blockText `json:"bulleted_list_item,omitempty"`
	Numbered  *blockText `json:"numbered_list_item,omitempty"`
	Quote     *blockText `json:"quote,omitempty"`
	Code      *codeBlock `json:"code,omitempty"`
	Divider   *struct{}  `json:"divider,omitempty"`
	File      *fileBlock `json:"file,omitempty"`
}

type blockText struct {
	RichText []richText `json:"rich_text"`
}

type codeBlock struct {
	Language string     `json:"language,omitempty"`
	RichText []richText `json:"rich_text"`
}

type fileBlock struct {
	Type       string      `json:"type"`
	FileUpload *fileUpload `json:"file_upload,omitempty"`
}

type fileUpload struct {
	ID string `json:"id"`
}

type blockChildren struct {
	Children []block `json:"children"`
}

type blockList struct {
	Results    []block `json:"results"`
	HasMore    bool    `json:"has_more"`
	NextCursor *string `json:"next_cursor"`
}

type createPageRequest struct {
	Parent     pageParent     `json:"parent"`
	Properties map[string]any `json:"properties"`
	Children   []block        `json:"children,omitempty"`
}

type pageParent struct {
	DatabaseID string `json:"database_id"`
}

type updatePageRequest struct {
	Properties map[string]any `json:"properties,omitempty"`
	Archived   *bool          `json:"archived,omitempty"`
}

type createUploadRequest struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Mode        string `json:"mode"`
}

type uploadResponse struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

type apiError struct {
	StatusCode int    `json:"-"`
	Code       string `json:"code"`
	Message    string `json:"message"`
}

func (e *apiError) Error() string {
	return "notion api: " + e.Code + ": " + e.Message
}
