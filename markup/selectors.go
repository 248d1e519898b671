// Package markup holds the selectors tied to the maps reviews panel.
package markup

const (
	// PanelSelector matches every scrollable candidate; several are nested.
	PanelSelector = "div.m6QErb.DxyBCb"
	// PanelTabIndex is the tabindex only the real reviews panel carries.
	PanelTabIndex = "-1"
	// PanelCardMarker must match at least one descendant of the panel.
	PanelCardMarker = "div.jftiEf"

	CardSelector   = "div.jftiEf.fontBodyMedium"
	ExpandSelector = "button.w8nwRe"

	NameSelector   = "div.d4r55"
	RatingSelector = "span.kvMYJc"
	RatingAttr     = "aria-label"
	TextSelector   = "span.wiI7pd"
	DateSelector   = "span.rsqaWe"
	ReviewIDAttr   = "data-review-id"

	// ConsentHost appears in the URL of the regional consent interstitial.
	ConsentHost = "consent.google.com"
)
