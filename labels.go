// labels.go
package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// recordingTakes is how many takes of each stimulus were recorded; one label
// file is produced per take.
const recordingTakes = 4

// stimulusReplacer folds the Welsh diacritics used in stimulus text onto
// plain ASCII filename aliases. Circumflexed vowels double; all other
// accents are stripped.
var stimulusReplacer = strings.NewReplacer(
	"â", "aa", "ê", "ee", "î", "ii", "ô", "oo", "û", "uu", "ŵ", "ww", "ŷ", "yy",
	"Â", "AA", "Ê", "EE", "Î", "II", "Ô", "OO", "Û", "UU", "Ŵ", "WW", "Ŷ", "YY",
	"ä", "a", "ë", "e", "ï", "i", "ö", "o", "ü", "u", "ẅ", "w", "ÿ", "y",
	"Ä", "A", "Ë", "E", "Ï", "I", "Ö", "O", "Ü", "U", "Ẅ", "W", "Ÿ", "Y",
	"á", "a", "é", "e", "í", "i", "ó", "o", "ú", "u", "ẃ", "w", "ý", "y",
	"Á", "A", "É", "E", "Í", "I", "Ó", "O", "Ú", "U", "Ẃ", "W", "Ý", "Y",
	"à", "a", "è", "e", "ì", "i", "ò", "o", "ù", "u", "ẁ", "w", "ỳ", "y",
	"À", "A", "È", "E", "Ì", "I", "Ò", "O", "Ù", "U", "Ẁ", "W", "Ỳ", "Y",
)

func mapStimulusToASCII(s string) string {
	return stimulusReplacer.Replace(s)
}

// labelText is the prompt the speakers read for each stimulus, which is what
// the forced aligner needs in the label file.
func labelText(stimulus string) string {
	return fmt.Sprintf("DYWEDA %s UNWAITH ETO", strings.ToUpper(stimulus))
}

// readStimuli loads the stimulus list from meta/stimuli.txt under dataDir.
func readStimuli(dataDir string) ([]string, error) {
	path := filepath.Join(dataDir, "meta", "stimuli.txt")
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: stimulus file %s could not be read, try running get-meta first", errBadPath, path)
	}
	var stimuli []string
	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")
		if line != "" {
			stimuli = append(stimuli, line)
		}
	}
	return stimuli, nil
}

// makeLabelFiles writes one .lab file per stimulus take into
// meta/labels under dataDir. Returns the number of files written.
func makeLabelFiles(dataDir string, stimuli []string) (int, error) {
	labelDir := filepath.Join(dataDir, "meta", "labels")
	if err := os.MkdirAll(labelDir, 0o755); err != nil {
		return 0, err
	}
	written := 0
	for _, stimulus := range stimuli {
		alias := mapStimulusToASCII(stimulus)
		text := labelText(stimulus)
		for take := 1; take <= recordingTakes; take++ {
			name := fmt.Sprintf("%s-%d.lab", alias, take)
			if err := os.WriteFile(filepath.Join(labelDir, name), []byte(text), 0o644); err != nil {
				return written, err
			}
			written++
		}
	}
	return written, nil
}

// findLabelledRecordings walks searchPath and collects every .wav file whose
// stem has a matching label in labelDir. Each hit becomes a work item copying
// the label file next to the recording.
func findLabelledRecordings(searchPath, labelDir string) ([]WorkItem, error) {
	labels := make(map[string]struct{})
	entries, err := os.ReadDir(labelDir)
	if err != nil {
		return nil, fmt.Errorf("%w: label directory %s could not be read", errBadPath, labelDir)
	}
	for _, entry := range entries {
		if filepath.Ext(entry.Name()) == ".lab" {
			labels[strings.TrimSuffix(entry.Name(), ".lab")] = struct{}{}
		}
	}

	pairs, err := enumerateByDir(searchPath, "", "", []string{".wav"})
	if err != nil {
		return nil, err
	}
	var items []WorkItem
	for _, flist := range pairs {
		for _, p := range flist {
			stem := strings.TrimSuffix(filepath.Base(p.Source), ".wav")
			if _, ok := labels[stem]; !ok {
				continue
			}
			items = append(items, WorkItem{
				Key:    p.Source,
				Source: filepath.Join(labelDir, stem+".lab"),
				Dest:   strings.TrimSuffix(p.Source, ".wav") + ".lab",
			})
		}
	}
	return items, nil
}

// copyLabel is the worker body for label copying.
func copyLabel(item WorkItem) error {
	if err := copyFile(item.Source, item.Dest); err != nil {
		return fmt.Errorf("copy label for %s: %w", item.Key, err)
	}
	return nil
}
