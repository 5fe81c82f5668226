package encoding

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
)

// Fingerprint hashes every vocabulary table and the raw column contract. A
// trained pipeline records it; loading refuses artifacts whose fingerprint
// differs from the running binary's.
func Fingerprint() string {
	h := sha256.New()
	for _, f := range Features {
		fmt.Fprintf(h, "feature\x00%s\x00%s\n", f.Name, f.Kind)
		if f.Vocab != nil {
			writeVocab(h, f.Vocab)
		}
	}
	writeVocab(h, &Vocabulary{Name: "YesNoAliases", Labels: []string{"No", "Yes"}})
	for _, p := range Ethnicities {
		fmt.Fprintf(h, "ethnicity\x00%s\x00%s\n", p.Label, p.Canonical)
	}
	for _, group := range [][]string{OrdinalColumns, CategoricalColumns, ContinuousColumns, BinaryColumns} {
		fmt.Fprintf(h, "group\x00%q\n", group)
	}
	return hex.EncodeToString(h.Sum(nil))
}

func writeVocab(w io.Writer, v *Vocabulary) {
	fmt.Fprintf(w, "vocab\x00%s\x00%d\n", v.Name, v.Base)
	for _, l := range v.Labels {
		fmt.Fprintf(w, "label\x00%s\n", l)
	}
}
