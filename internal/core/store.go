package core

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// Scheme is the immutable configuration for one scheme directory: its
// locus names, derived locus count, and threshold model.
type Scheme struct {
	ID         int
	Dir        string
	Loci       []string
	Thresholds Thresholds
}

// L returns the scheme's locus count.
func (s Scheme) L() int { return len(s.Loci) }

func schemeFile(dir string, id int, suffix string) string {
	return filepath.Join(dir, fmt.Sprintf("scheme_%d_%s", id, suffix))
}

// LoadScheme reads the loci and thresholds files for scheme id from dir.
func LoadScheme(dir string, id int) (Scheme, error) {
	lociPath := schemeFile(dir, id, "loci.txt")
	loci, err := readLoci(lociPath)
	if err != nil {
		return Scheme{}, err
	}
	thresholdsPath := schemeFile(dir, id, "thresholds.txt")
	raw, err := os.ReadFile(thresholdsPath)
	if err != nil {
		return Scheme{}, &ConfigError{File: thresholdsPath, Reason: err.Error()}
	}
	thresholds, err := ParseThresholds(strings.TrimSpace(string(raw)), len(loci))
	if err != nil {
		if ce, ok := err.(*ConfigError); ok {
			ce.File = thresholdsPath
			return Scheme{}, ce
		}
		return Scheme{}, err
	}
	return Scheme{ID: id, Dir: dir, Loci: loci, Thresholds: thresholds}, nil
}

func readLoci(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{File: path, Reason: err.Error()}
	}
	defer f.Close()

	var loci []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		loci = append(loci, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigError{File: path, Reason: err.Error()}
	}
	if len(loci) == 0 {
		return nil, &ConfigError{File: path, Reason: "no loci defined"}
	}
	return loci, nil
}

// Store reads and appends profiles and labeled codes for one scheme
// directory, normalizing allele tokens per spec §3.
type Store struct {
	scheme Scheme
}

// NewStore constructs a profile store bound to the given scheme.
func NewStore(scheme Scheme) *Store {
	return &Store{scheme: scheme}
}

func (s *Store) profilesPath() string {
	return schemeFile(s.scheme.Dir, s.scheme.ID, "profiles.tsv")
}

func (s *Store) lincodesPath() string {
	return schemeFile(s.scheme.Dir, s.scheme.ID, "lincodes.tsv")
}

// NormalizeAllele maps a raw allele token to its canonical integer form.
// "", "-", "0", and "N" (case-insensitive) all mean missing. A token
// containing semicolon-separated alternatives takes the first, falling
// back to missing when that first alternative is itself empty.
func NormalizeAllele(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if idx := strings.IndexByte(raw, ';'); idx >= 0 {
		raw = strings.TrimSpace(raw[:idx])
	}
	switch raw {
	case "", "-", "0", "N", "n":
		return Missing, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("invalid allele token %q", raw)
	}
	if v < 0 {
		return Missing, nil
	}
	return v, nil
}

// normalizeProfile splits a comma- or tab-separated allele field into a
// dense Profile, failing if the resulting width disagrees with L.
func (s *Store) normalizeProfile(field string) (Profile, error) {
	sep := ","
	if strings.Contains(field, "\t") {
		sep = "\t"
	}
	tokens := strings.Split(field, sep)
	if len(tokens) != s.scheme.L() {
		return nil, fmt.Errorf("profile width %d does not match locus count %d", len(tokens), s.scheme.L())
	}
	out := make(Profile, len(tokens))
	for i, tok := range tokens {
		v, err := NormalizeAllele(tok)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return out, nil
}

func countMissing(p Profile) int {
	n := 0
	for _, v := range p {
		if v == Missing {
			n++
		}
	}
	return n
}

// IterateProfiles yields stored profiles in id order, skipping any whose
// normalized missing-allele count exceeds maxMissing or whose id falls
// outside [minID, maxID] (nil bound means unbounded). Already-labeled ids
// are the caller's concern: this method iterates the raw profile file.
func (s *Store) IterateProfiles(minID, maxID *int, maxMissing int, visit func(UnlabeledProfile) error) error {
	path := s.profilesPath()
	f, err := os.Open(path)
	if err != nil {
		return &ConfigError{File: path, Reason: err.Error()}
	}
	defer f.Close()

	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue // header
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return &ConfigError{File: path, Reason: "malformed record: " + line}
		}
		id := strings.TrimSpace(parts[0])

		if minID != nil || maxID != nil {
			n, err := strconv.Atoi(id)
			if err == nil {
				if minID != nil && n < *minID {
					continue
				}
				if maxID != nil && n > *maxID {
					continue
				}
			}
		}

		profile, err := s.normalizeProfile(parts[1])
		if err != nil {
			return &ConfigError{File: path, Reason: fmt.Sprintf("profile %s: %v", id, err)}
		}
		if countMissing(profile) > maxMissing {
			continue
		}
		if err := visit(UnlabeledProfile{ID: id, Profile: profile}); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return &ConfigError{File: path, Reason: err.Error()}
	}
	return nil
}

// LoadLabeled reads the append-only labeled-set log in file order.
func (s *Store) LoadLabeled() ([]LabeledProfile, error) {
	path := s.lincodesPath()
	f, err := os.Open(path)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, &ConfigError{File: path, Reason: err.Error()}
	}
	defer f.Close()

	var out []LabeledProfile
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue // header
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		fields := strings.Split(line, "\t")
		if len(fields) != 3 {
			return nil, &ConfigError{File: path, Reason: "malformed labeled record: " + line}
		}
		code, err := parseCode(fields[1])
		if err != nil {
			return nil, &ConfigError{File: path, Reason: err.Error()}
		}
		profile, err := s.normalizeProfile(fields[2])
		if err != nil {
			return nil, &ConfigError{File: path, Reason: err.Error()}
		}
		out = append(out, LabeledProfile{ID: fields[0], Profile: profile, Code: code})
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigError{File: path, Reason: err.Error()}
	}
	return out, nil
}

func parseCode(raw string) (LINCode, error) {
	parts := strings.Split(raw, "_")
	code := make(LINCode, len(parts))
	for i, p := range parts {
		v, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid lincode token %q", raw)
		}
		code[i] = v
	}
	return code, nil
}

// AppendLabeled appends a single record to the labeled-set log, writing the
// header first if the file doesn't exist yet. The write is a single append
// syscall so a reader of LoadLabeled never observes a partial record.
func (s *Store) AppendLabeled(id string, profile Profile, code LINCode) error {
	path := s.lincodesPath()
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	}
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &ConfigError{File: path, Reason: err.Error()}
	}
	defer f.Close()

	var b strings.Builder
	if needsHeader {
		b.WriteString("profile_id\tlincode\tprofile\n")
	}
	b.WriteString(id)
	b.WriteByte('\t')
	b.WriteString(code.String())
	b.WriteByte('\t')
	b.WriteString(profileString(profile))
	b.WriteByte('\n')

	if _, err := f.WriteString(b.String()); err != nil {
		return &ConfigError{File: path, Reason: err.Error()}
	}
	return nil
}

func profileString(p Profile) string {
	return joinInts(p, ",")
}

// LoadExternalProfiles reads a TSV file of new profiles to merge in via
// the `input_profiles` option (spec §6), normalizing each record the same
// way the profile store itself does.
func (s *Store) LoadExternalProfiles(path string) ([]UnlabeledProfile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &ConfigError{File: path, Reason: err.Error()}
	}
	defer f.Close()

	var out []UnlabeledProfile
	scanner := bufio.NewScanner(f)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 16*1024*1024)
	first := true
	for scanner.Scan() {
		line := scanner.Text()
		if first {
			first = false
			continue
		}
		if strings.TrimSpace(line) == "" {
			continue
		}
		parts := strings.SplitN(line, "\t", 2)
		if len(parts) != 2 {
			return nil, &ConfigError{File: path, Reason: "malformed record: " + line}
		}
		profile, err := s.normalizeProfile(parts[1])
		if err != nil {
			return nil, &ConfigError{File: path, Reason: fmt.Sprintf("profile %s: %v", parts[0], err)}
		}
		out = append(out, UnlabeledProfile{ID: strings.TrimSpace(parts[0]), Profile: profile})
	}
	if err := scanner.Err(); err != nil {
		return nil, &ConfigError{File: path, Reason: err.Error()}
	}
	return out, nil
}

// AppendProfiles appends new raw profile records to the profile file,
// skipping any id that already exists. Used to wire in `input_profiles`
// (spec §6) before an assignment run begins.
func (s *Store) AppendProfiles(records []UnlabeledProfile) error {
	existing := make(map[string]struct{})
	path := s.profilesPath()
	needsHeader := false
	if _, err := os.Stat(path); os.IsNotExist(err) {
		needsHeader = true
	} else {
		_ = s.IterateProfiles(nil, nil, s.scheme.L(), func(u UnlabeledProfile) error {
			existing[u.ID] = struct{}{}
			return nil
		})
	}

	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		return &ConfigError{File: path, Reason: err.Error()}
	}
	defer f.Close()

	var b strings.Builder
	if needsHeader {
		b.WriteString("id\tprofile\n")
	}
	for _, r := range records {
		if _, ok := existing[r.ID]; ok {
			continue
		}
		b.WriteString(r.ID)
		b.WriteByte('\t')
		b.WriteString(profileString(r.Profile))
		b.WriteByte('\n')
	}
	if _, err := f.WriteString(b.String()); err != nil {
		return &ConfigError{File: path, Reason: err.Error()}
	}
	return nil
}
