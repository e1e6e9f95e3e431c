package validation

import (
	"strings"

	"inkwell/internal/models"
)

// PostInput is the body of create and update post requests. Topics and
// IsPublished stay untyped until validated so that shape errors are reported
// as field errors instead of decode failures.
type PostInput struct {
	Title        string `json:"title" validate:"required_text"`
	Description  string `json:"description" validate:"required_text"`
	BlogContents string `json:"blogContents" validate:"required_text"`
	Topics       any    `json:"topics" validate:"omitempty,topics_array,topics_strings,topics_max"`
	IsPublished  any    `json:"isPublished" validate:"omitempty,boolean_value"`
	// ClearImage is set when the request sends image=null.
	ClearImage bool `json:"-"`
}

func (in *PostInput) Validate() models.FieldErrors {
	return Struct(in)
}

// TopicList returns the validated topics in order.
func (in *PostInput) TopicList() []string {
	out := []string{}
	switch v := in.Topics.(type) {
	case []string:
		out = append(out, v...)
	case []any:
		for _, t := range v {
			if s, ok := t.(string); ok {
				out = append(out, s)
			}
		}
	}
	return out
}

// Published returns the validated publish flag; absent means false.
func (in *PostInput) Published() bool {
	switch v := in.IsPublished.(type) {
	case bool:
		return v
	case string:
		return strings.EqualFold(strings.TrimSpace(v), "true")
	default:
		return false
	}
}

// CommentInput is the body of comment and reply requests.
type CommentInput struct {
	Text string `json:"text" form:"text" validate:"required_text,max=1500"`
	Name string `json:"name" form:"name" validate:"omitempty,min=1,max=50"`
}

func (in *CommentInput) Validate() models.FieldErrors {
	in.Name = strings.TrimSpace(in.Name)
	return Struct(in)
}

// RegisterInput is the body of POST /users/register.
type RegisterInput struct {
	Email       string `json:"email" form:"email" validate:"required,email"`
	Password    string `json:"password" form:"password" validate:"min=6"`
	DisplayName string `json:"displayName" form:"displayName" validate:"required_text"`
}

func (in *RegisterInput) Validate() models.FieldErrors {
	in.Email = models.NormalizeEmail(in.Email)
	in.DisplayName = strings.TrimSpace(in.DisplayName)
	return Struct(in)
}

// LoginInput is the body of POST /users/login.
type LoginInput struct {
	Email    string `json:"email" form:"email" validate:"required,email"`
	Password string `json:"password" form:"password" validate:"required"`
}

func (in *LoginInput) Validate() models.FieldErrors {
	in.Email = models.NormalizeEmail(in.Email)
	return Struct(in)
}

// ProfileInput is the body of PUT /users. Nil fields are left unchanged.
type ProfileInput struct {
	DisplayName *string `json:"displayName" form:"displayName" validate:"omitempty,required_text"`
	NewPassword string  `json:"newPassword" form:"newPassword" validate:"omitempty,min=6"`
	OldPassword string  `json:"oldPassword" form:"oldPassword" validate:"required_with=NewPassword"`
	// ClearPfp is set when the request sends pfp=null.
	ClearPfp bool `json:"-" form:"-"`
}

func (in *ProfileInput) Validate() models.FieldErrors {
	if in.DisplayName != nil {
		trimmed := strings.TrimSpace(*in.DisplayName)
		in.DisplayName = &trimmed
	}
	return Struct(in)
}
