package source

import "github.com/hookbridge/hookbridge/internal/event"

// DefaultJiraPath is where Jira integrations listen unless config says
// otherwise.
const DefaultJiraPath = "/jira/webhook"

// Jira returns the built-in registry for Atlassian Jira webhooks. Event
// names follow Jira's own convention: issue and version events carry the
// "jira:" prefix, link and project events do not.
func Jira() Registry {
	write := func(path string) event.TypeSpec {
		return event.TypeSpec{PKFields: []string{path}, Operation: event.OpWrite}
	}
	del := func(path string) event.TypeSpec {
		return event.TypeSpec{PKFields: []string{path}, Operation: event.OpDelete}
	}

	return Registry{
		"jira:issue_created": write("issue.id"),
		"jira:issue_updated": write("issue.id"),
		"jira:issue_deleted": del("issue.id"),

		"issuelink_created": write("issueLink.id"),
		"issuelink_deleted": del("issueLink.id"),

		"project_created":          write("project.id"),
		"project_updated":          write("project.id"),
		"project_deleted":          del("project.id"),
		"project_soft_deleted":     del("project.id"),
		"project_restored_deleted": write("project.id"),

		"jira:version_created":    write("version.id"),
		"jira:version_updated":    write("version.id"),
		"jira:version_deleted":    del("version.id"),
		"jira:version_released":   write("version.id"),
		"jira:version_unreleased": write("version.id"),
	}
}
