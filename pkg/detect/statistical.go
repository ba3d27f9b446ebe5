package detect

import (
	"math"
	"strings"
)

// BayesDetector is a binary (scam vs. legitimate) naive Bayes text
// classifier, trained once at startup from the fixed labeled corpus below.
// It returns the posterior probability of the scam class. Untrained, it
// contributes zero and never blocks the pipeline.
type BayesDetector struct {
	trained    bool
	scamWords  map[string]int
	legitWords map[string]int
	scamTotal  int
	legitTotal int
	scamDocs   int
	legitDocs  int
	vocab      map[string]struct{}
}

// labeledExample is one training document.
type labeledExample struct {
	text string
	scam bool
}

// trainingCorpus is the fixed labeled example set. Scam examples mirror the
// message families the pattern rules target; legitimate examples cover the
// transactional notifications that most resemble them.
var trainingCorpus = []labeledExample{
	{"your bank account will be blocked today verify immediately", true},
	{"dear customer your account has been suspended click link to verify kyc", true},
	{"your kyc has expired update now or account will be deactivated", true},
	{"share the otp sent to your mobile to unblock your card", true},
	{"congratulations you have won 25 lakh in lucky draw pay registration fee to claim", true},
	{"urgent your electricity will be disconnected tonight call officer immediately", true},
	{"work from home job earn 5000 daily send joining fee on upi", true},
	{"your parcel is held at customs pay penalty or face legal action", true},
	{"income tax refund pending verify your bank details on this link", true},
	{"install anydesk app for verification we will fix your account problem", true},
	{"your upi will be blocked approve the collect request to continue service", true},
	{"police complaint registered against your number call immediately to settle", true},
	{"your debit card is deactivated share card number and cvv to reactivate", true},
	{"final notice pay outstanding loan emi today or face court case", true},
	{"your transaction of rs 500 was successful reference 123456", false},
	{"your account was credited with salary for this month", false},
	{"thank you for shopping with us your order has been shipped", false},
	{"your electricity bill of rs 1200 is generated due date next friday", false},
	{"appointment confirmed for tomorrow at 4 pm see you then", false},
	{"your otp for login is 482910 do not share it with anyone", false},
	{"monthly statement for your credit card is attached", false},
	{"hi are we still meeting for lunch tomorrow", false},
	{"your recharge of rs 299 was successful validity 28 days", false},
	{"delivery agent will arrive between 2 and 4 pm today", false},
	{"minimum balance charge of rs 150 was deducted from your account", false},
	{"thanks for the payment your invoice is settled", false},
}

// NewBayesDetector trains the classifier on the fixed corpus.
func NewBayesDetector() *BayesDetector {
	d := &BayesDetector{
		scamWords:  make(map[string]int),
		legitWords: make(map[string]int),
		vocab:      make(map[string]struct{}),
	}
	d.train(trainingCorpus)
	return d
}

// NewUntrainedBayesDetector returns a classifier with no model.
// It always scores zero; used to exercise the degraded pipeline.
func NewUntrainedBayesDetector() *BayesDetector {
	return &BayesDetector{
		scamWords:  make(map[string]int),
		legitWords: make(map[string]int),
		vocab:      make(map[string]struct{}),
	}
}

func (d *BayesDetector) train(corpus []labeledExample) {
	for _, ex := range corpus {
		tokens := tokenize(strings.ToLower(ex.text))
		if ex.scam {
			d.scamDocs++
		} else {
			d.legitDocs++
		}
		for _, tok := range tokens {
			d.vocab[tok] = struct{}{}
			if ex.scam {
				d.scamWords[tok]++
				d.scamTotal++
			} else {
				d.legitWords[tok]++
				d.legitTotal++
			}
		}
	}
	d.trained = d.scamDocs > 0 && d.legitDocs > 0
}

// Trained reports whether a model is loaded.
func (d *BayesDetector) Trained() bool {
	return d.trained
}

// Evaluate returns the posterior probability of the scam class.
// An untrained model contributes zero.
func (d *BayesDetector) Evaluate(text string, _ []Turn) Signal {
	var sig Signal
	if !d.trained {
		return sig
	}
	tokens := tokenize(text)
	if len(tokens) == 0 {
		return sig
	}

	// Log-space naive Bayes with Laplace smoothing.
	vocabSize := float64(len(d.vocab))
	totalDocs := float64(d.scamDocs + d.legitDocs)
	logScam := math.Log(float64(d.scamDocs) / totalDocs)
	logLegit := math.Log(float64(d.legitDocs) / totalDocs)

	for _, tok := range tokens {
		logScam += math.Log((float64(d.scamWords[tok]) + 1) / (float64(d.scamTotal) + vocabSize))
		logLegit += math.Log((float64(d.legitWords[tok]) + 1) / (float64(d.legitTotal) + vocabSize))
	}

	// Posterior via log-sum-exp to avoid underflow on long messages.
	maxLog := math.Max(logScam, logLegit)
	pScam := math.Exp(logScam - maxLog)
	pLegit := math.Exp(logLegit - maxLog)
	posterior := pScam / (pScam + pLegit)

	sig.Score = clamp01(posterior)
	if posterior >= 0.5 {
		sig.Indicators = append(sig.Indicators, "statistical_scam_class")
	}
	return sig
}
