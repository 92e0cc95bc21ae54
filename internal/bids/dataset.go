// Package bids reads datasets organized under the BIDS directory and
// file-naming convention: participant metadata, dataset descriptions,
// and the subject/session/task layout of an fmriprep derivatives tree.
package bids

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// Table holds a tab-separated metadata file as named string columns.
type Table struct {
	Columns []string
	Rows    [][]string
}

// Column returns the values of a named column.
func (t *Table) Column(name string) ([]string, error) {
	for i, col := range t.Columns {
		if col == name {
			vals := make([]string, len(t.Rows))
			for j, row := range t.Rows {
				vals[j] = row[i]
			}
			return vals, nil
		}
	}
	return nil, fmt.Errorf("column %q not found", name)
}

// ReadTSV reads a tab-separated file into a Table.
func ReadTSV(path string) (*Table, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.Comma = '\t'
	r.FieldsPerRecord = -1
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parsing %s: %w", path, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("%s: empty table", path)
	}
	return &Table{Columns: records[0], Rows: records[1:]}, nil
}

// Dataset is a raw BIDS dataset rooted at a directory containing
// dataset_description.json and participants.tsv.
type Dataset struct {
	Root string

	participants *Table
	description  map[string]any
	subjects     []string
}

// Open opens a raw BIDS dataset. The participant table is read eagerly;
// the dataset description is read on first use.
func Open(root string) (*Dataset, error) {
	if root == "" {
		return nil, fmt.Errorf("the path to the dataset in BIDS format must be specified")
	}
	d := &Dataset{Root: root}
	participants, err := ReadTSV(d.ParticipantsPath())
	if err != nil {
		return nil, err
	}
	d.participants = participants
	return d, nil
}

// ParticipantsPath returns the path of participants.tsv.
func (d *Dataset) ParticipantsPath() string {
	return filepath.Join(d.Root, "participants.tsv")
}

// DescriptionPath returns the path of dataset_description.json.
func (d *Dataset) DescriptionPath() string {
	return filepath.Join(d.Root, "dataset_description.json")
}

// Participants returns the participant metadata table.
func (d *Dataset) Participants() *Table {
	return d.participants
}

// Subjects returns the participant labels with the sub- prefix stripped.
func (d *Dataset) Subjects() ([]string, error) {
	if d.subjects != nil {
		return d.subjects, nil
	}
	ids, err := d.participants.Column("participant_id")
	if err != nil {
		return nil, fmt.Errorf("%s: %w", d.ParticipantsPath(), err)
	}
	subjects := make([]string, len(ids))
	for i, id := range ids {
		subjects[i] = strings.TrimPrefix(id, "sub-")
	}
	d.subjects = subjects
	return subjects, nil
}

// Description returns the parsed dataset_description.json contents.
func (d *Dataset) Description() (map[string]any, error) {
	if d.description != nil {
		return d.description, nil
	}
	data, err := os.ReadFile(d.DescriptionPath())
	if err != nil {
		return nil, fmt.Errorf("reading dataset description: %w", err)
	}
	var desc map[string]any
	if err := json.Unmarshal(data, &desc); err != nil {
		return nil, fmt.Errorf("parsing %s: %w", d.DescriptionPath(), err)
	}
	d.description = desc
	return desc, nil
}

// Name returns the Name field of the dataset description.
func (d *Dataset) Name() (string, error) {
	desc, err := d.Description()
	if err != nil {
		return "", err
	}
	name, ok := desc["Name"].(string)
	if !ok {
		return "", fmt.Errorf("%s: missing Name field", d.DescriptionPath())
	}
	return name, nil
}
