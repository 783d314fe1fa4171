package version

// Release coordinates for the self-updater. The updater refuses to run
// while Owner/Repo still carry the placeholder prefix.
const (
	AppName = "CTI-Precheck"
	AppID   = "com.ctiprecheck.desktop"
	Version = "1.4.2"

	GitHubOwner = "REPLACE_WITH_OWNER"
	GitHubRepo  = "REPLACE_WITH_REPO"
)

// UserAgent identifies the application against the GitHub API.
func UserAgent() string {
	return AppName + "/" + Version
}
