package auth

// DeviceCodeGrant holds the initial response from a device authorization
// request. It is immutable once issued: the code pair to show the user and
// the parameters needed for polling.
type DeviceCodeGrant struct {
	DeviceCode      string
	UserCode        string
	VerificationURI string
	ExpiresIn       int // seconds until the device code expires
	Interval        int // minimum polling interval in seconds
}
