package sources

import (
	"context"
	"encoding/xml"
	"path/filepath"
	"strings"

	"github.com/dshills/tasktree/internal/task"
	"github.com/dshills/tasktree/internal/task/scan"
)

// DotnetSource discovers dotnet CLI commands for C# and F# projects.
type DotnetSource struct{}

// NewDotnetSource creates a new .NET project source.
func NewDotnetSource() *DotnetSource {
	return &DotnetSource{}
}

// Type returns the task type.
func (s *DotnetSource) Type() task.Type {
	return task.TypeDotnet
}

// Patterns returns the file patterns this source handles.
func (s *DotnetSource) Patterns() []string {
	return []string{"*.csproj", "*.fsproj"}
}

type msbuildProject struct {
	XMLName        xml.Name `xml:"Project"`
	Sdk            string   `xml:"Sdk,attr"`
	PropertyGroups []struct {
		OutputType string `xml:"OutputType"`
	} `xml:"PropertyGroup"`
	ItemGroups []struct {
		PackageReferences []struct {
			Include string `xml:"Include,attr"`
		} `xml:"PackageReference"`
	} `xml:"ItemGroup"`
}

var testPackages = []string{"Microsoft.NET.Test.Sdk", "xunit", "nunit", "MSTest"}

// Discover finds .NET project files.
func (s *DotnetSource) Discover(ctx context.Context, ws *task.Workspace) ([]*task.Task, error) {
	return eachFile(ctx, ws, s.Type(), s.Patterns(), s.parse)
}

func (s *DotnetSource) parse(ws *task.Workspace, path string, data []byte) ([]*task.Task, error) {
	var project msbuildProject
	if err := xml.Unmarshal(data, &project); err != nil {
		return nil, err
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	quoted := scan.QuotePath(path)
	c := newCollector(s.Type(), path)

	c.add("build", "dotnet build "+quoted).Description = "Build " + name
	c.add("clean", "dotnet clean "+quoted).Description = "Clean " + name
	c.add("restore", "dotnet restore "+quoted).Description = "Restore packages for " + name
	if project.runnable() {
		c.add("run", "dotnet run --project "+quoted).Description = "Run " + name
	}
	if project.testable() {
		c.add("test", "dotnet test "+quoted).Description = "Test " + name
	}
	return c.result(), nil
}

func (p *msbuildProject) runnable() bool {
	sdk := strings.ToLower(p.Sdk)
	if strings.HasSuffix(sdk, ".web") || strings.HasSuffix(sdk, ".worker") {
		return true
	}
	for _, g := range p.PropertyGroups {
		switch strings.ToLower(strings.TrimSpace(g.OutputType)) {
		case "exe", "winexe":
			return true
		}
	}
	return false
}

func (p *msbuildProject) testable() bool {
	for _, g := range p.ItemGroups {
		for _, ref := range g.PackageReferences {
			for _, pkg := range testPackages {
				if strings.EqualFold(ref.Include, pkg) {
					return true
				}
			}
		}
	}
	return false
}
