package sequencer

import (
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/Southclaws/fault"
	"github.com/Southclaws/fault/fmsg"
)

const saveTimeLayout = "2006-01-02_15-04-05"

// DefaultProject is used when a save names no project.
const DefaultProject = "untitled"

// ErrNoSaves is returned when loading the latest save of an empty project.
var ErrNoSaves = errors.New("no saves in project")

// SaveInfo describes one saved file of a project.
type SaveInfo struct {
	Filename  string
	Label     string // parsed from the filename, empty if unlabelled
	Timestamp time.Time
}

// Store keeps projects as folders of timestamped settings files under Root.
type Store struct {
	Root string
	now  func() time.Time
}

// NewStore creates a store rooted at dir.
func NewStore(dir string) *Store {
	return &Store{Root: dir, now: time.Now}
}

// ProjectDir returns the folder of a project.
func (s *Store) ProjectDir(project string) string {
	return filepath.Join(s.Root, sanitizeFilename(project))
}

// ListProjects returns project folder names, sorted.
func (s *Store) ListProjects() ([]string, error) {
	entries, err := os.ReadDir(s.Root)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []string{}, nil
		}
		return nil, fault.Wrap(err, fmsg.WithDesc("list projects", "Could not read the projects folder"))
	}

	var projects []string
	for _, entry := range entries {
		if entry.IsDir() {
			projects = append(projects, entry.Name())
		}
	}
	sort.Strings(projects)
	return projects, nil
}

// parseSaveName splits 2006-01-02_15-04-05[_label].json.
func parseSaveName(name string) (SaveInfo, bool) {
	base, ok := strings.CutSuffix(name, ".json")
	if !ok || len(base) < len(saveTimeLayout) {
		return SaveInfo{}, false
	}
	ts, err := time.ParseInLocation(saveTimeLayout, base[:len(saveTimeLayout)], time.Local)
	if err != nil {
		return SaveInfo{}, false
	}
	rest := base[len(saveTimeLayout):]
	label := ""
	if rest != "" {
		if rest[0] != '_' || len(rest) == 1 {
			return SaveInfo{}, false
		}
		label = rest[1:]
	}
	return SaveInfo{Filename: name, Label: label, Timestamp: ts}, true
}

// ListSaves returns the saves of a project, newest first.
func (s *Store) ListSaves(project string) ([]SaveInfo, error) {
	entries, err := os.ReadDir(s.ProjectDir(project))
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return []SaveInfo{}, nil
		}
		return nil, fault.Wrap(err, fmsg.WithDesc("list saves", "Could not read project "+project))
	}

	var saves []SaveInfo
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if info, ok := parseSaveName(entry.Name()); ok {
			saves = append(saves, info)
		}
	}

	sort.SliceStable(saves, func(i, j int) bool {
		if !saves[i].Timestamp.Equal(saves[j].Timestamp) {
			return saves[i].Timestamp.After(saves[j].Timestamp)
		}
		return saves[i].Filename > saves[j].Filename
	})
	return saves, nil
}

// Save writes settings as a new timestamped file and returns its name.
func (s *Store) Save(project, label string, settings Settings) (string, error) {
	if project == "" {
		project = DefaultProject
	}
	dir := s.ProjectDir(project)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return "", fault.Wrap(err, fmsg.WithDesc("create project dir", "Could not create project "+project))
	}

	data, err := json.MarshalIndent(settings, "", "  ")
	if err != nil {
		return "", fault.Wrap(err, fmsg.With("encode settings"))
	}

	filename := s.now().Format(saveTimeLayout)
	if label = sanitizeFilename(label); label != "" {
		filename += "_" + label
	}
	filename += ".json"

	if err := os.WriteFile(filepath.Join(dir, filename), data, 0644); err != nil {
		return "", fault.Wrap(err, fmsg.WithDesc("write save", "Could not save project "+project))
	}
	return filename, nil
}

// Load reads a save of a project, the most recent one when filename is empty.
func (s *Store) Load(project, filename string) (Settings, error) {
	if filename == "" {
		saves, err := s.ListSaves(project)
		if err != nil {
			return Settings{}, err
		}
		if len(saves) == 0 {
			return Settings{}, fault.Wrap(ErrNoSaves, fmsg.WithDesc("load latest", "Project "+project+" has no saves"))
		}
		filename = saves[0].Filename
	}

	data, err := os.ReadFile(filepath.Join(s.ProjectDir(project), filepath.Base(filename)))
	if err != nil {
		return Settings{}, fault.Wrap(err, fmsg.WithDesc("read save", "Could not open "+filename))
	}

	var settings Settings
	if err := json.Unmarshal(data, &settings); err != nil {
		return Settings{}, fault.Wrap(err, fmsg.WithDesc("decode save", filename+" is not a valid save"))
	}
	return settings, nil
}

// Delete removes one save of a project.
func (s *Store) Delete(project, filename string) error {
	if err := os.Remove(filepath.Join(s.ProjectDir(project), filepath.Base(filename))); err != nil {
		return fault.Wrap(err, fmsg.WithDesc("delete save", "Could not delete "+filename))
	}
	return nil
}

// sanitizeFilename replaces characters that are problematic in filenames.
func sanitizeFilename(name string) string {
	name = strings.TrimSpace(name)
	if name == "." || name == ".." {
		return ""
	}
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '-'
		case '*', '?', '"', '<', '>', '|':
			return -1
		}
		return r
	}, name)
}
