package backup

import "context"

// DirectoryPicker chooses where a backup document is saved. Implementations
// wrap whatever storage-access flow the host platform offers. ok=false means
// the user cancelled, which is not an error.
type DirectoryPicker interface {
	PickDirectory(ctx context.Context) (dir string, ok bool, err error)
}

// FilePicker chooses the backup document to import. ok=false means the user
// cancelled.
type FilePicker interface {
	PickFile(ctx context.Context) (path string, ok bool, err error)
}

// Sharer hands a written backup file to the platform's share mechanism.
type Sharer interface {
	Share(ctx context.Context, path string) error
}

// StaticDirectory is a DirectoryPicker that always answers with a fixed
// directory. The CLI uses it with --dir; an empty path reads as a
// cancellation.
type StaticDirectory string

func (d StaticDirectory) PickDirectory(ctx context.Context) (string, bool, error) {
	if d == "" {
		return "", false, nil
	}
	return string(d), true, nil
}

// StaticFile is a FilePicker that always answers with a fixed path.
type StaticFile string

func (f StaticFile) PickFile(ctx context.Context) (string, bool, error) {
	if f == "" {
		return "", false, nil
	}
	return string(f), true, nil
}
