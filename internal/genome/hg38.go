package genome

// hg38Sequences returns the 25 primary sequences of GRCh38/hg38 in the
// standard browser ordering. Lengths are the UCSC hg38 chrom sizes.
func hg38Sequences() []Sequence {
	return []Sequence{
		{Name: "chr1", Length: 248956422},
		{Name: "chr2", Length: 242193529},
		{Name: "chr3", Length: 198295559},
		{Name: "chr4", Length: 190214555},
		{Name: "chr5", Length: 181538259},
		{Name: "chr6", Length: 170805979},
		{Name: "chr7", Length: 159345973},
		{Name: "chr8", Length: 145138636},
		{Name: "chr9", Length: 138394717},
		{Name: "chr10", Length: 133797422},
		{Name: "chr11", Length: 135086622},
		{Name: "chr12", Length: 133275309},
		{Name: "chr13", Length: 114364328},
		{Name: "chr14", Length: 107043718},
		{Name: "chr15", Length: 101991189},
		{Name: "chr16", Length: 90338345},
		{Name: "chr17", Length: 83257441},
		{Name: "chr18", Length: 80373285},
		{Name: "chr19", Length: 58617616},
		{Name: "chr20", Length: 64444167},
		{Name: "chr21", Length: 46709983},
		{Name: "chr22", Length: 50818468},
		{Name: "chrX", Length: 156040895},
		{Name: "chrY", Length: 57227415},
		{Name: "chrM", Length: 16569},
	}
}
