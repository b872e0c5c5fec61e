package framegrab

// UserDataDir returns the profile directory of a launched rod browser.
func (b *RodBrowser) UserDataDir() string { return b.userDataDir }
