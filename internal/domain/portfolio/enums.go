package portfolio

import "strings"

// WorkType is the service category a project documents.
type WorkType string

const (
	WorkTypePavingCleaning     WorkType = "PAVING_CLEANING"
	WorkTypeWoodenDeckCleaning WorkType = "WOODEN_DECK_CLEANING"
	WorkTypeRoofCleaning       WorkType = "ROOF_CLEANING"
	WorkTypeFacadeCleaning     WorkType = "FACADE_CLEANING"
)

var workTypeDisplay = map[WorkType]string{
	WorkTypePavingCleaning:     "Fliserens",
	WorkTypeWoodenDeckCleaning: "Rens af træterrasse",
	WorkTypeRoofCleaning:       "Tagrens",
	WorkTypeFacadeCleaning:     "Facaderens",
}

func (w WorkType) Valid() bool {
	_, ok := workTypeDisplay[w]
	return ok
}

func (w WorkType) DisplayName() string { return workTypeDisplay[w] }

// WorkTypes lists every work type in declaration order.
func WorkTypes() []WorkType {
	return []WorkType{WorkTypePavingCleaning, WorkTypeWoodenDeckCleaning, WorkTypeRoofCleaning, WorkTypeFacadeCleaning}
}

// ParseWorkType accepts the enum name in any case.
func ParseWorkType(raw string) (WorkType, bool) {
	w := WorkType(strings.ToUpper(strings.TrimSpace(raw)))
	return w, w.Valid()
}

// CustomerType distinguishes private from business customers.
type CustomerType string

const (
	CustomerTypePrivate  CustomerType = "PRIVATE_CUSTOMER"
	CustomerTypeBusiness CustomerType = "BUSINESS_CUSTOMER"
)

func (c CustomerType) Valid() bool {
	return c == CustomerTypePrivate || c == CustomerTypeBusiness
}

func (c CustomerType) DisplayName() string {
	switch c {
	case CustomerTypePrivate:
		return "Privat kunde"
	case CustomerTypeBusiness:
		return "Erhvervskunde"
	default:
		return ""
	}
}

func ParseCustomerType(raw string) (CustomerType, bool) {
	c := CustomerType(strings.ToUpper(strings.TrimSpace(raw)))
	return c, c.Valid()
}

// ImageType tags a photo as taken before or after the work.
type ImageType string

const (
	ImageTypeBefore ImageType = "BEFORE"
	ImageTypeAfter  ImageType = "AFTER"
)

func (t ImageType) Valid() bool {
	return t == ImageTypeBefore || t == ImageTypeAfter
}

func ParseImageType(raw string) (ImageType, bool) {
	t := ImageType(strings.ToUpper(strings.TrimSpace(raw)))
	return t, t.Valid()
}
