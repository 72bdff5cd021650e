package pose

// COCO body keypoint indices as output by YOLOv8-pose models
const (
	Nose = iota
	LeftEye
	RightEye
	LeftEar
	RightEar
	LeftShoulder
	RightShoulder
	LeftElbow
	RightElbow
	LeftWrist
	RightWrist
	LeftHip
	RightHip
	LeftKnee
	RightKnee
	LeftAnkle
	RightAnkle
)

// KeyPointsTotal is the number of keypoints in a COCO skeleton
const KeyPointsTotal = 17

// Limbs are the keypoints at the end of each limb, used for measuring
// strikes and kicks relative to the torso
var Limbs = []int{LeftWrist, RightWrist, LeftAnkle, RightAnkle}

// Torso are the keypoints that anchor the body center
var Torso = []int{LeftShoulder, RightShoulder, LeftHip, RightHip}

// Skeleton defines the keypoint pairs to draw lines between, so {RightAnkle,
// RightKnee} means draw a line from right ankle to right knee
var Skeleton = [][2]int{
	{RightAnkle, RightKnee}, {RightKnee, RightHip}, {LeftAnkle, LeftKnee},
	{LeftKnee, LeftHip}, {RightHip, LeftHip}, {RightShoulder, RightHip},
	{LeftShoulder, LeftHip}, {RightShoulder, LeftShoulder},
	{RightShoulder, RightElbow}, {LeftShoulder, LeftElbow},
	{RightElbow, RightWrist}, {LeftElbow, LeftWrist}, {LeftEye, RightEye},
	{Nose, LeftEye}, {Nose, RightEye}, {LeftEye, LeftEar}, {RightEye, RightEar},
	{LeftEar, LeftShoulder}, {RightEar, RightShoulder},
}

// Centroid returns the mean position of the given keypoints that have a
// score of at least minScore.  ok is false when none qualify.
func Centroid(kps []KeyPoint, idx []int, minScore float32) (p Point, ok bool) {

	n := 0

	for _, i := range idx {
		if i >= len(kps) || kps[i].Score < minScore {
			continue
		}

		p.X += kps[i].X
		p.Y += kps[i].Y
		n++
	}

	if n == 0 {
		return Point{}, false
	}

	p.X /= float32(n)
	p.Y /= float32(n)

	return p, true
}
