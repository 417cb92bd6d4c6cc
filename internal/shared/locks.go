package shared

// ContentLockKey names the advisory lock that serialises CMS versioning for a page.
func ContentLockKey(page string) string {
	return "cms:" + page
}
