package enums

// NotificationKind identifies which settlement webhook a payload targets.
type NotificationKind string

const (
	NotificationKindPreview      NotificationKind = "preview"
	NotificationKindConfirmation NotificationKind = "confirmation"
)

// String implements fmt.Stringer.
func (k NotificationKind) String() string {
	return string(k)
}

// IsValid reports whether the value is a known NotificationKind.
func (k NotificationKind) IsValid() bool {
	return k == NotificationKindPreview || k == NotificationKindConfirmation
}
