// AngelaMos | 2026
// form.go

package upload

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"

	"github.com/carterperez-dev/usergate/internal/core"
)

const maxFieldSize = 64 * 1024

// Form is a parsed multipart body: plain fields plus the stored avatar path,
// which is empty when no file was sent.
type Form struct {
	Fields     map[string]string
	AvatarPath string
}

// ReadForm streams a multipart body part by part. At most one file is
// accepted and only under FieldName; it is stored as soon as it is read. On
// any error the stored file has already been removed.
func (a *Avatars) ReadForm(ctx context.Context, mr *multipart.Reader) (*Form, error) {
	form := &Form{Fields: map[string]string{}}

	fail := func(err error) (*Form, error) {
		if form.AvatarPath != "" {
			a.remove(ctx, form.AvatarPath)
		}
		return nil, err
	}

	for {
		part, err := mr.NextPart()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return fail(core.ValidationError("malformed multipart body"))
		}

		if part.FileName() == "" {
			value, err := readField(part)
			_ = part.Close()
			if err != nil {
				return fail(err)
			}
			form.Fields[part.FormName()] = value
			continue
		}

		if part.FormName() != FieldName {
			_ = part.Close()
			return fail(ErrUnexpectedField)
		}
		if form.AvatarPath != "" {
			_ = part.Close()
			return fail(ErrTooManyFiles)
		}

		stored, err := a.Save(ctx, part)
		_ = part.Close()
		if err != nil {
			return fail(err)
		}
		form.AvatarPath = stored
	}

	return form, nil
}

func readField(part *multipart.Part) (string, error) {
	data, err := io.ReadAll(io.LimitReader(part, maxFieldSize+1))
	if err != nil {
		return "", fmt.Errorf("read form field: %w", err)
	}
	if len(data) > maxFieldSize {
		return "", core.ValidationError(part.FormName() + " is too long")
	}
	return string(data), nil
}
