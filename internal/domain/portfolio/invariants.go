package portfolio

import (
	"fmt"

	"github.com/google/uuid"
)

const (
	MsgNoImages          = "At least one image must be provided"
	MsgNoMetadata        = "Image metadata must be provided"
	MsgCountMismatch     = "Number of images must match number of metadata entries"
	MsgImageNotInProject = "Image does not belong to the specified project"
)

// InvariantViolation reports that an image set would lack a BEFORE or an AFTER image.
type InvariantViolation struct {
	Missing ImageType
	Message string
}

func (v *InvariantViolation) Error() string { return v.Message }

// TypeCounts is the image-type multiset of a project.
type TypeCounts map[ImageType]int

func CountTypes(types []ImageType) TypeCounts {
	out := TypeCounts{}
	for _, t := range types {
		out[t]++
	}
	return out
}

// CountImages counts types over images, skipping the image with id skip.
func CountImages(images []*Image, skip uuid.UUID) TypeCounts {
	out := TypeCounts{}
	for _, img := range images {
		if img == nil || (skip != uuid.Nil && img.ID == skip) {
			continue
		}
		out[img.ImageType]++
	}
	return out
}

// ValidateCreationSet requires at least one BEFORE and one AFTER entry.
func ValidateCreationSet(types []ImageType) error {
	counts := CountTypes(types)
	for _, required := range []ImageType{ImageTypeBefore, ImageTypeAfter} {
		if counts[required] == 0 {
			return &InvariantViolation{
				Missing: required,
				Message: fmt.Sprintf("At least one %s image must be provided", required),
			}
		}
	}
	return nil
}

// ValidateRemoval fails when removing removedID from images leaves no image of its type.
// An id that is not in images never fails.
func ValidateRemoval(images []*Image, removedID uuid.UUID) error {
	var removed *Image
	for _, img := range images {
		if img != nil && img.ID == removedID {
			removed = img
			break
		}
	}
	if removed == nil {
		return nil
	}
	return lastOfType(images, removed)
}

// ValidateTypeChange treats a type edit as removing the old type and adding the new one.
func ValidateTypeChange(images []*Image, imageID uuid.UUID, next ImageType) error {
	for _, img := range images {
		if img == nil || img.ID != imageID {
			continue
		}
		if img.ImageType == next {
			return nil
		}
		return lastOfType(images, img)
	}
	return nil
}

func lastOfType(images []*Image, removed *Image) error {
	if !removed.ImageType.Valid() {
		return nil
	}
	remaining := CountImages(images, removed.ID)
	if remaining[removed.ImageType] == 0 {
		return &InvariantViolation{
			Missing: removed.ImageType,
			Message: fmt.Sprintf("Cannot delete the last %s image of the project", removed.ImageType),
		}
	}
	return nil
}
