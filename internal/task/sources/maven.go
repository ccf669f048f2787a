package sources

import (
	"context"
	"encoding/xml"
	"path/filepath"
	"strings"

	"github.com/dshills/tasktree/internal/task"
)

// MavenSource discovers Maven lifecycle phases, plugin goals and profiles.
type MavenSource struct{}

// NewMavenSource creates a new pom.xml source.
func NewMavenSource() *MavenSource {
	return &MavenSource{}
}

// Type returns the task type.
func (s *MavenSource) Type() task.Type {
	return task.TypeMaven
}

// Patterns returns the file patterns this source handles.
func (s *MavenSource) Patterns() []string {
	return []string{"pom.xml"}
}

type pomProject struct {
	XMLName    xml.Name    `xml:"project"`
	ArtifactID string      `xml:"artifactId"`
	Plugins    []pomPlugin `xml:"build>plugins>plugin"`
	Profiles   []struct {
		ID string `xml:"id"`
	} `xml:"profiles>profile"`
}

type pomPlugin struct {
	GroupID    string `xml:"groupId"`
	ArtifactID string `xml:"artifactId"`
}

var mavenPhases = []struct {
	name string
	desc string
}{
	{"clean", "Remove build output"},
	{"compile", "Compile the sources"},
	{"test", "Run the unit tests"},
	{"package", "Package the compiled code"},
	{"verify", "Run integration checks"},
	{"install", "Install into the local repository"},
}

// Discover finds pom.xml files. Nothing is reported unless the workspace
// contains JVM sources.
func (s *MavenSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	if !ws.HasExtension(jvmExtensions...) {
		return nil, nil
	}
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *MavenSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	var pom pomProject
	if err := xml.Unmarshal(data, &pom); err != nil {
		return nil, err
	}

	mvn := findWrapper(ws, filepath.Dir(path), "mvnw")
	if mvn == "" {
		mvn = "mvn"
	}

	c := newCollector(s.Type(), path)
	for _, phase := range mavenPhases {
		c.add(phase.name, mvn+" "+phase.name).Description = phase.desc
	}
	for _, p := range pom.Plugins {
		if strings.TrimSpace(p.ArtifactID) == "spring-boot-maven-plugin" {
			if t := c.add("spring-boot:run", mvn+" spring-boot:run"); t != nil {
				t.Description = "Run the Spring Boot application"
			}
		}
	}
	for _, profile := range pom.Profiles {
		id := strings.TrimSpace(profile.ID)
		if id == "" {
			continue
		}
		if t := c.add("package -P"+id, mvn+" -P"+id+" package"); t != nil {
			t.Description = "Package with profile " + id
		}
	}
	return c.result(), nil
}
